package cache

import (
	"net/http"

	"github.com/KOMKZ/tickerdesk/errcode"
)

// ModuleCode cache module code
const ModuleCode = 72

// Error codes: 72xxxx
const (
	ErrCodeNilProducer   = 1
	ErrCodeProducer      = 2
	ErrCodeProducerPanic = 3
	ErrCodeConfig        = 4
	ErrCodeZeroPolicy    = 5
)

var (
	// ErrNilProducer request without a producer
	ErrNilProducer = errcode.Register(errcode.New(
		ModuleCode, ErrCodeNilProducer,
		"cache", "error.cache.nil_producer", "producer is nil",
	).WithClass(errcode.ClassContract))

	// ErrProducer producer failed with an untyped error
	ErrProducer = errcode.Register(errcode.New(
		ModuleCode, ErrCodeProducer,
		"cache", "error.cache.producer", "data could not be fetched",
		http.StatusBadGateway,
	).WithClass(errcode.ClassProvider))

	// ErrProducerPanic producer panicked
	ErrProducerPanic = errcode.Register(errcode.New(
		ModuleCode, ErrCodeProducerPanic,
		"cache", "error.cache.producer_panic", "internal error while building the report",
	))

	// ErrConfig invalid cache configuration
	ErrConfig = errcode.Register(errcode.New(
		ModuleCode, ErrCodeConfig,
		"cache", "error.cache.config", "invalid cache configuration",
	))

	// ErrZeroPolicy request without a validity policy
	ErrZeroPolicy = errcode.Register(errcode.New(
		ModuleCode, ErrCodeZeroPolicy,
		"cache", "error.cache.zero_policy", "validity policy is not set",
	).WithClass(errcode.ClassContract))
)

// IsProviderError upstream failure
func IsProviderError(err error) bool {
	return errcode.ClassOf(err) == errcode.ClassProvider
}

// IsValidationError malformed caller input
func IsValidationError(err error) bool {
	return errcode.ClassOf(err) == errcode.ClassValidation
}
