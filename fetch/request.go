package fetch

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Options customizes a single Fetch call.
type Options struct {
	// Method defaults to GET.
	Method string
	// Header is merged over the coordinator's default headers.
	Header http.Header
	// Body is sent as-is when it is []byte, string or json.RawMessage and
	// JSON-encoded otherwise.
	Body any
	// Timeout overrides the coordinator's per-request timeout.
	Timeout time.Duration
}

// Request is one fully resolved call handed to a Sender.
type Request struct {
	Method  string
	URL     string
	Header  http.Header
	Body    []byte
	Timeout time.Duration
}

// Key is the deduplication and cache key of the request.
func (r *Request) Key() string {
	return requestKey(r.Method, r.URL)
}

func requestKey(method, url string) string {
	return method + " " + url
}

func resolveURL(baseURL, endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return baseURL + endpoint
}

func normalizeMethod(method string) string {
	if method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(method)
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return json.Marshal(b)
	}
}

func mergeHeaders(base, extra http.Header) http.Header {
	out := make(http.Header, len(base)+len(extra))
	for k, v := range base {
		out[k] = append([]string(nil), v...)
	}
	for k, v := range extra {
		out[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
	}
	return out
}
