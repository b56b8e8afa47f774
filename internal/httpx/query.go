package httpx

import (
	"fmt"
	"net/url"
	"reflect"

	"github.com/google/go-querystring/query"
)

// QuerySerializer turns request parameters into query values.
type QuerySerializer func(params any) (url.Values, error)

// RepeatedKeys is the query strategy used by every GET operation: slice
// values are written as the same key repeated once per element
// (path=a&path=b), never with bracket or index notation.
//
// Structs are encoded through their `url` tags. Maps with string keys are
// also accepted, with string, slice or scalar values.
var RepeatedKeys QuerySerializer = encodeRepeatedKeys

func encodeRepeatedKeys(params any) (url.Values, error) {
	switch p := params.(type) {
	case nil:
		return url.Values{}, nil
	case url.Values:
		return cloneValues(p), nil
	case map[string][]string:
		return cloneValues(p), nil
	case map[string]string:
		out := make(url.Values, len(p))
		for k, v := range p {
			out.Set(k, v)
		}
		return out, nil
	case map[string]any:
		out := make(url.Values, len(p))
		for k, v := range p {
			addValue(out, k, v)
		}
		return out, nil
	}

	values, err := query.Values(params)
	if err != nil {
		return nil, fmt.Errorf("httpx: encode query: %w", err)
	}
	return values, nil
}

func addValue(out url.Values, key string, v any) {
	if v == nil {
		return
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
		for i := 0; i < rv.Len(); i++ {
			out.Add(key, fmt.Sprint(rv.Index(i).Interface()))
		}
		return
	}
	out.Add(key, fmt.Sprint(v))
}

func cloneValues(src map[string][]string) url.Values {
	out := make(url.Values, len(src))
	for k, values := range src {
		out[k] = append([]string(nil), values...)
	}
	return out
}
