package core

import (
	"fmt"
	"strconv"
)

type Params map[string]any

// Request is a REST call as a venue protocol describes it, before any
// transport sees it. Weight is what the call costs against the IP budget.
type Request struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Query   Params            `json:"query,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Weight  int               `json:"weight"`
}

func NewRequest(method, path string) *Request {
	return &Request{Method: method, Path: path, Weight: 1}
}

func (r *Request) SetQuery(key string, value any) *Request {
	if r.Query == nil {
		r.Query = Params{}
	}
	r.Query[key] = value
	return r
}

func (r *Request) SetWeight(weight int) *Request {
	r.Weight = weight
	return r
}

// StringQuery flattens Query for the HTTP layer.
func (r *Request) StringQuery() map[string]string {
	out := make(map[string]string, len(r.Query))
	for k, v := range r.Query {
		out[k] = queryValue(v)
	}
	return out
}

func queryValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	}
	return fmt.Sprint(v)
}
