package server

import (
	"net/http"

	"github.com/KOMKZ/tickerdesk/errcode"
)

// ModuleCode server module code
const ModuleCode = 75

// Error codes: 75xxxx
const (
	ErrCodeBadFileName  = 1
	ErrCodeFileNotFound = 2
	ErrCodeBadQuery     = 3
	ErrCodeConfig       = 4
	ErrCodeStart        = 5
)

var (
	// ErrBadFileName /api/file name is not <key>.<ext> with a known extension
	ErrBadFileName = errcode.Register(errcode.New(
		ModuleCode, ErrCodeBadFileName,
		"server", "error.server.bad_file_name", "file name must be <key>.html, <key>.json or <key>.png",
		http.StatusBadRequest,
	).WithClass(errcode.ClassValidation))

	// ErrFileNotFound no artifact stored under the name
	ErrFileNotFound = errcode.Register(errcode.New(
		ModuleCode, ErrCodeFileNotFound,
		"server", "error.server.file_not_found", "file not found",
		http.StatusNotFound,
	).WithClass(errcode.ClassValidation))

	// ErrBadQuery query string could not be bound
	ErrBadQuery = errcode.Register(errcode.New(
		ModuleCode, ErrCodeBadQuery,
		"server", "error.server.bad_query", "malformed query string",
		http.StatusBadRequest,
	).WithClass(errcode.ClassValidation))

	// ErrConfig invalid server configuration
	ErrConfig = errcode.Register(errcode.New(
		ModuleCode, ErrCodeConfig,
		"server", "error.server.config", "invalid server configuration",
	))

	// ErrStart listener could not be started
	ErrStart = errcode.Register(errcode.New(
		ModuleCode, ErrCodeStart,
		"server", "error.server.start", "http server failed to start",
	))
)
