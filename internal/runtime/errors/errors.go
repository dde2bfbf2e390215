package errors

import sterrors "errors"

var (
	ErrConfigRequired                 = sterrors.New("streambind: configuration is required")
	ErrLoggerRequired                 = sterrors.New("streambind: logger is required")
	ErrTopologyRequired               = sterrors.New("streambind: topology is required")
	ErrNoInstancesRegistered          = sterrors.New("streambind: no engine instances registered")
	ErrApplicationServerNotConfigured = sterrors.New("streambind: application server address is not configured")
)

// ConfigValidationError wraps configuration validation failures so callers can
// distinguish them from runtime failures.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "streambind: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error { return e.Err }

// NewConfigValidationError wraps err, returning nil when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}
