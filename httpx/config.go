package httpx

// ErrorLoggingConfig error log settings for HandleError
type ErrorLoggingConfig struct {
	Enable bool `mapstructure:"enable" json:"enable"`

	// IgnoreHTTPStatus statuses that are never logged, e.g. []int{400, 404}
	IgnoreHTTPStatus []int `mapstructure:"ignore_http_status" json:"ignore_http_status"`

	// FullErrorChain logs the error chain next to code and message
	FullErrorChain bool `mapstructure:"full_error_chain" json:"full_error_chain"`

	// LogLevel level for classes without an entry in ClassLevels
	LogLevel string `mapstructure:"log_level" json:"log_level"`

	// ClassLevels per error class (provider, store, validation, contract, internal)
	ClassLevels map[string]string `mapstructure:"class_levels" json:"class_levels"`
}

// DefaultErrorLoggingConfig upstream outages at warn, bad input at info,
// store and internal failures at error; 400 and 404 are not logged
func DefaultErrorLoggingConfig() ErrorLoggingConfig {
	return ErrorLoggingConfig{
		Enable:           true,
		IgnoreHTTPStatus: []int{400, 404},
		FullErrorChain:   true,
		LogLevel:         "error",
		ClassLevels: map[string]string{
			"provider":   "warn",
			"validation": "info",
		},
	}
}
