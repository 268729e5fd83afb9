package httpclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Request outgoing request description; providers only read, so there is no body
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   url.Values
}

// NewGetRequest creates a GET Request
func NewGetRequest(urlStr string) *Request {
	return &Request{
		Method:  http.MethodGet,
		URL:     urlStr,
		Headers: make(map[string]string),
		Query:   make(url.Values),
	}
}

// WithHeader sets a header
func (r *Request) WithHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

// WithQuery sets a query parameter
func (r *Request) WithQuery(key, value string) *Request {
	r.Query.Set(key, value)
	return r
}

// fullURL joins the base URL and query string
func (r *Request) fullURL(baseURL string) string {
	u := r.URL
	if baseURL != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(u, "/")
	}
	if len(r.Query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + r.Query.Encode()
	}
	return u
}

// build creates the *http.Request for one attempt
func (r *Request) build(ctx context.Context, baseURL string, headers map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, r.Method, r.fullURL(baseURL), nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	// Request headers win over client headers
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}
