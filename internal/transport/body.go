package transport

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"
)

// IsJSON reports whether the response declares a JSON media type.
func (r *Response) IsJSON() bool {
	mediaType, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// Decoded returns the body as a JSON value when the response is JSON, and as
// text otherwise.
func (r *Response) Decoded() (any, error) {
	if !r.IsJSON() {
		return string(r.Body), nil
	}

	if len(r.Body) == 0 {
		return nil, nil
	}

	var v any
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// FlattenHeader keys headers by lower-case name and joins repeated values.
func FlattenHeader(h http.Header) map[string]string {
	flat := make(map[string]string, len(h))
	for key, values := range h {
		flat[strings.ToLower(key)] = strings.Join(values, ", ")
	}
	return flat
}
