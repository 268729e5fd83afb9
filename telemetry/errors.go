package telemetry

import (
	"net/http"

	"github.com/KOMKZ/tickerdesk/errcode"
)

// ModuleCode telemetry module code
const ModuleCode = 77

var (
	// ErrConfig invalid telemetry section
	ErrConfig = errcode.Register(errcode.New(ModuleCode, 1, "telemetry", "error.telemetry.config", "invalid telemetry config", http.StatusInternalServerError))
	// ErrExporter exporter could not be created
	ErrExporter = errcode.Register(errcode.New(ModuleCode, 2, "telemetry", "error.telemetry.exporter", "telemetry exporter failed", http.StatusInternalServerError))
)
