package embedded

import (
	"errors"
	"strings"

	"golang.org/x/net/http/httpguts"
)

var (
	errReservedHeader = errors.New("name is reserved by the host")
	errInvalidName    = errors.New("invalid header name")
	errInvalidValue   = errors.New("invalid header value")
)

// forbiddenNames are the request headers a fetch host controls itself.
var forbiddenNames = map[string]struct{}{
	"accept-charset":                 {},
	"accept-encoding":                {},
	"access-control-request-headers": {},
	"access-control-request-method":  {},
	"connection":                     {},
	"content-length":                 {},
	"cookie":                         {},
	"cookie2":                        {},
	"date":                           {},
	"dnt":                            {},
	"expect":                         {},
	"host":                           {},
	"keep-alive":                     {},
	"origin":                         {},
	"referer":                        {},
	"set-cookie":                     {},
	"te":                             {},
	"trailer":                        {},
	"transfer-encoding":              {},
	"upgrade":                        {},
	"via":                            {},
}

var forbiddenPrefixes = []string{"proxy-", "sec-"}

// checkHeader rejects header fields the host would refuse to send.
// Name matching is case-insensitive.
func checkHeader(name, value string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return errInvalidName
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return errInvalidValue
	}

	lower := strings.ToLower(name)
	if _, ok := forbiddenNames[lower]; ok {
		return errReservedHeader
	}
	for _, p := range forbiddenPrefixes {
		if strings.HasPrefix(lower, p) {
			return errReservedHeader
		}
	}
	return nil
}
