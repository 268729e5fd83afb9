package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// maxErrorBody bytes of body kept on a StatusError
const maxErrorBody = 256

// Response buffered HTTP response
type Response struct {
	StatusCode int
	Status     string
	Headers    http.Header
	Body       []byte
	URL        string

	Duration time.Duration // total time including retries
	Attempts int
}

// IsSuccess 2xx
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsServerError 5xx
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}

// JSON decodes the body into v
func (r *Response) JSON(v any) error {
	if v == nil {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// String body as string
func (r *Response) String() string {
	return string(r.Body)
}

// newResponse reads and closes the body
func newResponse(httpResp *http.Response) (*Response, error) {
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    httpResp.Header,
		Body:       body,
	}
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		resp.URL = httpResp.Request.URL.String()
	}
	return resp, nil
}

// StatusError non-2xx response
// Implements retry.HTTPError so status based retry conditions apply
type StatusError struct {
	Code   int
	Status string
	URL    string
	Body   string
}

func newStatusError(resp *Response) *StatusError {
	body := resp.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &StatusError{
		Code:   resp.StatusCode,
		Status: resp.Status,
		URL:    resp.URL,
		Body:   string(body),
	}
}

// Error implements error
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.Code, e.URL)
}

// StatusCode implements retry.HTTPError
func (e *StatusError) StatusCode() int {
	return e.Code
}
