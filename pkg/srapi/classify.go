package srapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"speedrun-api/internal/domain"
)

// envelopeMessage returns the message of an API error body. The body must be
// a JSON object with exactly one of the keys "error" or "message" holding a
// string. Keys match case-sensitively; carrying both keys is malformed.
func envelopeMessage(data []byte) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return "", false
	}

	var msg string
	found := false
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return "", false
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return "", false
		}
		if key := tok.(string); key != "error" && key != "message" {
			continue
		}
		if found || string(raw) == "null" || json.Unmarshal(raw, &msg) != nil {
			return "", false
		}
		found = true
	}

	if tok, err := dec.Token(); err != nil || tok != json.Delim('}') {
		return "", false
	}
	if _, err := dec.Token(); err != io.EOF {
		return "", false
	}
	return msg, found
}

// Classify passes 2xx responses through. For any other status it drains the
// body and returns an ErrAPI error when the body is an error envelope, or an
// ErrStatus error otherwise.
func Classify(resp *Response) (*Response, error) {
	if resp.Success() {
		return resp, nil
	}
	defer resp.Body.Close()

	data, err := resp.Body.Bytes()
	if err == nil {
		if msg, ok := envelopeMessage(data); ok {
			return nil, domain.NewAPIError(resp.StatusCode, msg)
		}
	}
	return nil, domain.NewStatusError(resp.StatusCode)
}

// GetResponse performs req and classifies the response.
func (c *Client) GetResponse(ctx context.Context, req *Request) (*Response, error) {
	resp, err := c.Request(ctx, req)
	if err != nil {
		return nil, err
	}
	return Classify(resp)
}

// GetJSON performs req, classifies the response and decodes its body into T.
func GetJSON[T any](ctx context.Context, c *Client, req *Request) (T, error) {
	var zero T

	resp, err := c.GetResponse(ctx, req)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	data, err := resp.Body.Bytes()
	if err != nil {
		return zero, domain.NewTransportError("srapi.GetJSON", err)
	}
	c.logger.Debug("response body", "url", req.URL, "body", string(data))

	return decode[T]("srapi.GetJSON", data)
}

// DecodeJSON reads an already classified response body into T. Unknown keys
// are ignored. A value of the wrong JSON kind, a missing required field or an
// object sharing no key with T is an ErrJSON error.
func DecodeJSON[T any](resp *Response) (T, error) {
	var zero T
	defer resp.Body.Close()

	data, err := resp.Body.Bytes()
	if err != nil {
		return zero, domain.NewTransportError("srapi.DecodeJSON", err)
	}
	return decode[T]("srapi.DecodeJSON", data)
}

func decode[T any](op string, data []byte) (T, error) {
	var v, zero T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, domain.NewJSONError(op, err)
	}

	shape, err := shapeOf(reflect.TypeFor[T]())
	if err != nil {
		return zero, domain.NewJSONError(op, err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return zero, domain.NewJSONError(op, err)
	}
	if result := shape.Validate(doc); !result.IsValid() {
		return zero, domain.NewJSONError(op, fmt.Errorf("%s", result.Error()))
	}
	return v, nil
}
