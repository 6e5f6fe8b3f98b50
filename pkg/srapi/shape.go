package srapi

import (
	"encoding"
	"encoding/json"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

// shapes caches the compiled schema of each decode target.
var shapes sync.Map // reflect.Type -> *jsonschema.Schema

var (
	jsonUnmarshalerType = reflect.TypeFor[json.Unmarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// shapeOf returns the JSON Schema a document must satisfy to decode into t.
// encoding/json alone accepts any object for any struct, so the schema adds
// what it skips: keys match case-sensitively, fields that are neither
// pointers nor omitempty must be present, and a non-empty object must share
// at least one key with a struct whose fields are all optional.
func shapeOf(t reflect.Type) (*jsonschema.Schema, error) {
	if s, ok := shapes.Load(t); ok {
		return s.(*jsonschema.Schema), nil
	}

	doc, err := json.Marshal(schemaFor(t, map[reflect.Type]bool{}))
	if err != nil {
		return nil, err
	}
	s, err := jsonschema.NewCompiler().Compile(doc)
	if err != nil {
		return nil, err
	}
	shapes.Store(t, s)
	return s, nil
}

type schema = map[string]any

func schemaFor(t reflect.Type, visiting map[reflect.Type]bool) schema {
	if t.Kind() == reflect.Interface || customDecoding(t) {
		return schema{}
	}

	switch t.Kind() {
	case reflect.Pointer:
		return schema{"anyOf": []any{schema{"type": "null"}, schemaFor(t.Elem(), visiting)}}
	case reflect.Bool:
		return schema{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		// integrality is already enforced by encoding/json
		return schema{"type": "number"}
	case reflect.String:
		return schema{"type": "string"}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 && !customDecoding(t.Elem()) {
			return schema{"type": []string{"string", "null"}}
		}
		return schema{"type": []string{"array", "null"}, "items": schemaFor(t.Elem(), visiting)}
	case reflect.Array:
		return schema{"type": []string{"array", "null"}, "items": schemaFor(t.Elem(), visiting)}
	case reflect.Map:
		return schema{"type": []string{"object", "null"}, "additionalProperties": schemaFor(t.Elem(), visiting)}
	case reflect.Struct:
		return structSchema(t, visiting)
	default:
		return schema{}
	}
}

func structSchema(t reflect.Type, visiting map[reflect.Type]bool) schema {
	if visiting[t] {
		return schema{}
	}
	visiting[t] = true
	defer delete(visiting, t)

	props := schema{}
	var required []string
	collectFields(t, false, props, &required, visiting)

	s := schema{"type": "object", "properties": props}
	switch {
	case len(required) > 0:
		s["required"] = required
	case len(props) > 0:
		names := make([]string, 0, len(props))
		for name := range props {
			names = append(names, name)
		}
		slices.Sort(names)
		alts := []any{schema{"maxProperties": 0}}
		for _, name := range names {
			alts = append(alts, schema{"required": []string{name}})
		}
		s["anyOf"] = alts
	}
	return s
}

// collectFields adds t's JSON fields to props, following encoding/json's
// promotion of embedded structs. Fields promoted through an embedded pointer
// are optional.
func collectFields(t reflect.Type, optional bool, props schema, required *[]string, visiting map[reflect.Type]bool) {
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && !customDecoding(ft) {
				collectFields(ft, optional || f.Type.Kind() == reflect.Pointer, props, required, visiting)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}

		if hasOption(opts, "string") {
			props[name] = schema{}
		} else {
			props[name] = schemaFor(f.Type, visiting)
		}
		if !optional && f.Type.Kind() != reflect.Pointer &&
			!hasOption(opts, "omitempty") && !hasOption(opts, "omitzero") {
			*required = append(*required, name)
		}
	}
}

// customDecoding reports whether t decodes itself, in which case its JSON
// form is unknown.
func customDecoding(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	return t.Implements(jsonUnmarshalerType) || pt.Implements(jsonUnmarshalerType) ||
		t.Implements(textUnmarshalerType) || pt.Implements(textUnmarshalerType)
}

func hasOption(opts, want string) bool {
	for opt := range strings.SplitSeq(opts, ",") {
		if opt == want {
			return true
		}
	}
	return false
}
