package artifact

import (
	"net/http"

	"github.com/KOMKZ/tickerdesk/errcode"
)

// ModuleCode artifact module code
const ModuleCode = 71

// Error codes: 71xxxx
const (
	ErrCodeUnknownKind  = 1
	ErrCodeInvalidValue = 2
	ErrCodeEmptyKey     = 3
	ErrCodeStoreWrite   = 4
	ErrCodeStoreRead    = 5
	ErrCodeCorrupt      = 6
	ErrCodeNotFound     = 7
	ErrCodeConfig       = 8
)

var (
	// ErrUnknownKind kind outside html/table/image
	ErrUnknownKind = errcode.Register(errcode.New(
		ModuleCode, ErrCodeUnknownKind,
		"artifact", "error.artifact.unknown_kind", "unknown artifact kind",
	).WithClass(errcode.ClassContract))

	// ErrInvalidValue payload type does not match the kind
	ErrInvalidValue = errcode.Register(errcode.New(
		ModuleCode, ErrCodeInvalidValue,
		"artifact", "error.artifact.invalid_value", "payload type does not match artifact kind",
	).WithClass(errcode.ClassContract))

	// ErrEmptyKey empty cache key
	ErrEmptyKey = errcode.Register(errcode.New(
		ModuleCode, ErrCodeEmptyKey,
		"artifact", "error.artifact.empty_key", "artifact key is empty",
	).WithClass(errcode.ClassContract))

	// ErrStoreWrite write or rename failed
	ErrStoreWrite = errcode.Register(errcode.New(
		ModuleCode, ErrCodeStoreWrite,
		"artifact", "error.artifact.write", "artifact write failed",
	).WithClass(errcode.ClassStore))

	// ErrStoreRead backend read failed for a reason other than absence
	ErrStoreRead = errcode.Register(errcode.New(
		ModuleCode, ErrCodeStoreRead,
		"artifact", "error.artifact.read", "artifact read failed",
	).WithClass(errcode.ClassStore))

	// ErrCorrupt header, checksum or payload decode failure
	ErrCorrupt = errcode.Register(errcode.New(
		ModuleCode, ErrCodeCorrupt,
		"artifact", "error.artifact.corrupt", "artifact is corrupt",
	).WithClass(errcode.ClassStore))

	// ErrNotFound returned by backends for absent artifacts
	ErrNotFound = errcode.Register(errcode.New(
		ModuleCode, ErrCodeNotFound,
		"artifact", "error.artifact.not_found", "artifact not found",
		http.StatusNotFound,
	).WithClass(errcode.ClassStore))

	// ErrConfig invalid store configuration
	ErrConfig = errcode.Register(errcode.New(
		ModuleCode, ErrCodeConfig,
		"artifact", "error.artifact.config", "invalid store configuration",
	))
)
