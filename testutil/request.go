package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// RequestBuilder builds one request against a gin engine
type RequestBuilder struct {
	method  string
	path    string
	headers map[string]string
	query   url.Values
}

// GET request builder
func GET(path string) *RequestBuilder {
	return &RequestBuilder{method: http.MethodGet, path: path, headers: map[string]string{}, query: url.Values{}}
}

// WithQuery adds a query parameter
func (rb *RequestBuilder) WithQuery(key, value string) *RequestBuilder {
	rb.query.Add(key, value)
	return rb
}

// WithHeader sets a header
func (rb *RequestBuilder) WithHeader(key, value string) *RequestBuilder {
	rb.headers[key] = value
	return rb
}

// WithTraceID sets X-Trace-ID
func (rb *RequestBuilder) WithTraceID(id string) *RequestBuilder {
	return rb.WithHeader("X-Trace-ID", id)
}

// Do serves the request
func (rb *RequestBuilder) Do(engine *gin.Engine) *ResponseHelper {
	target := rb.path
	if len(rb.query) > 0 {
		target += "?" + rb.query.Encode()
	}
	req := httptest.NewRequest(rb.method, target, nil)
	for k, v := range rb.headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return &ResponseHelper{Recorder: w}
}

// ResponseHelper recorded response
type ResponseHelper struct {
	Recorder *httptest.ResponseRecorder
}

// Status code
func (rh *ResponseHelper) Status() int {
	return rh.Recorder.Code
}

// Body as string
func (rh *ResponseHelper) Body() string {
	return rh.Recorder.Body.String()
}

// Header response header
func (rh *ResponseHelper) Header(key string) string {
	return rh.Recorder.Header().Get(key)
}

// JSON decodes the body into v
func (rh *ResponseHelper) JSON(v any) error {
	return json.Unmarshal(rh.Recorder.Body.Bytes(), v)
}
