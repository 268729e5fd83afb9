// Package provider holds what the upstream data clients share:
// error codes, client configuration and error classification
package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/KOMKZ/tickerdesk/errcode"
	"github.com/KOMKZ/tickerdesk/httpclient"
	"github.com/sony/gobreaker"
)

// ModuleCode provider module
const ModuleCode = 73

var (
	// ErrUpstream the data source failed or refused the request
	ErrUpstream = errcode.Register(errcode.New(ModuleCode, 1, "provider", "error.provider.upstream",
		"data source unavailable", http.StatusBadGateway).WithClass(errcode.ClassProvider))

	// ErrNoData the data source answered but had nothing for the request
	ErrNoData = errcode.Register(errcode.New(ModuleCode, 2, "provider", "error.provider.no_data",
		"no data available", http.StatusNotFound).WithClass(errcode.ClassProvider))

	// ErrTimeout the data source did not answer in time
	ErrTimeout = errcode.Register(errcode.New(ModuleCode, 3, "provider", "error.provider.timeout",
		"data source timed out", http.StatusGatewayTimeout).WithClass(errcode.ClassProvider))

	// ErrDecode the data source answered with something unreadable
	ErrDecode = errcode.Register(errcode.New(ModuleCode, 4, "provider", "error.provider.decode",
		"data source returned malformed data", http.StatusBadGateway).WithClass(errcode.ClassProvider))

	// ErrConfig invalid provider configuration
	ErrConfig = errcode.Register(errcode.New(ModuleCode, 5, "provider", "error.provider.config",
		"invalid provider configuration"))
)

// Classify maps a transport error onto a provider error code
// LayeredErrors pass through untouched
func Classify(source string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errcode.As(err); ok {
		return err
	}

	var base *errcode.LayeredError
	var se *httpclient.StatusError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		base = ErrTimeout
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		base = ErrUpstream.WithMsg("data source temporarily disabled after repeated failures")
	case errors.As(err, &se) && se.Code == http.StatusNotFound:
		base = ErrNoData
	default:
		base = ErrUpstream
	}
	le := base.Wrap(err).WithData("source", source)
	if se != nil {
		le = le.WithData("status", se.Code)
	}
	return le
}
