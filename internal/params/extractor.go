package params

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"wxrelay/internal/logger"
)

// Bag is the normalized flat request parameter mapping. Query parameters
// form the base layer; body-derived parameters overwrite them key by key.
type Bag map[string]string

func (b Bag) Get(key string) string {
	return b[key]
}

func (b Bag) Has(key string) bool {
	_, ok := b[key]
	return ok
}

const maxBodyBytes = 1 << 20

type Extractor struct {
	log logger.Logger
}

func NewExtractor(log logger.Logger) *Extractor {
	return &Extractor{log: log}
}

// Extract builds the parameter bag for a request. It never fails: any body
// parsing error is logged and the query-only base layer is returned.
func (e *Extractor) Extract(r *http.Request) Bag {
	bag := fromQuery(r.URL.Query())

	if !methodCarriesBody(r.Method) {
		return bag
	}

	bodyLayer, err := e.extractBody(r)
	if err != nil {
		e.log.WarnwCtx(r.Context(), "Failed to parse request body, using query parameters only",
			"error", err,
			"content_type", r.Header.Get("Content-Type"),
		)
		return bag
	}

	for k, v := range bodyLayer {
		bag[k] = v
	}

	return bag
}

func methodCarriesBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

func fromQuery(values url.Values) Bag {
	bag := make(Bag, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			bag[k] = vs[len(vs)-1]
		}
	}
	return bag
}

func (e *Extractor) extractBody(r *http.Request) (map[string]string, error) {
	contentType := strings.ToLower(r.Header.Get("Content-Type"))

	switch {
	case strings.Contains(contentType, "application/json"):
		return decodeJSONBody(r.Body)

	case strings.Contains(contentType, "application/x-www-form-urlencoded"):
		return decodeURLEncodedBody(r.Body)

	case strings.Contains(contentType, "multipart/form-data"):
		return decodeMultipartBody(r)

	default:
		return decodeRawBody(r.Body)
	}
}

// decodeJSONBody handles declared-JSON bodies. A bare string becomes the
// content field; an object is unwrapped one level; anything else contributes
// nothing.
func decodeJSONBody(body io.Reader) (map[string]string, error) {
	value, err := decodeJSONValue(body)
	if err != nil {
		return nil, err
	}

	switch v := value.(type) {
	case string:
		return map[string]string{"content": v}, nil
	case map[string]interface{}:
		return flattenObject(unwrapObject(v)), nil
	default:
		return map[string]string{}, nil
	}
}

func decodeURLEncodedBody(body io.Reader) (map[string]string, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, err
	}

	return map[string]string(fromQuery(values)), nil
}

func decodeMultipartBody(r *http.Request) (map[string]string, error) {
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(r.MultipartForm.Value))
	for k, vs := range r.MultipartForm.Value {
		if len(vs) > 0 {
			fields[k] = vs[len(vs)-1]
		}
	}

	return fields, nil
}

// decodeRawBody is the fallback for undeclared or unknown content types:
// probe the text as JSON, and when that yields anything but an object treat
// the whole body as the content field.
func decodeRawBody(body io.Reader) (map[string]string, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	text := string(raw)
	if text == "" {
		return map[string]string{}, nil
	}

	value, err := decodeJSONValue(bytes.NewReader(raw))
	if err != nil {
		return map[string]string{"content": text}, nil
	}

	if obj, ok := value.(map[string]interface{}); ok {
		return flattenObject(unwrapObject(obj)), nil
	}

	return map[string]string{"content": text}, nil
}

func decodeJSONValue(body io.Reader) (interface{}, error) {
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	dec.UseNumber()

	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}

	return value, nil
}

// unwrapObject resolves the nested-container shapes: a params or data object
// field replaces the wrapper, one level deep only.
func unwrapObject(obj map[string]interface{}) map[string]interface{} {
	if nested, ok := obj["params"].(map[string]interface{}); ok {
		return nested
	}
	if nested, ok := obj["data"].(map[string]interface{}); ok {
		return nested
	}
	return obj
}

// flattenObject stringifies every value so no nested structure survives
// into the bag. Nulls are dropped.
func flattenObject(obj map[string]interface{}) map[string]string {
	flat := make(map[string]string, len(obj))
	for k, v := range obj {
		switch t := v.(type) {
		case nil:
			continue
		case string:
			flat[k] = t
		case json.Number:
			flat[k] = t.String()
		case bool:
			flat[k] = strconv.FormatBool(t)
		default:
			encoded, err := json.Marshal(t)
			if err != nil {
				continue
			}
			flat[k] = string(encoded)
		}
	}
	return flat
}
