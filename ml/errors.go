package ml

import "fmt"

// EncodingError reports a value that could not be turned into a feature
// column. Callers can fix the input and resubmit.
type EncodingError struct {
	Field  string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding %s: %s", e.Field, e.Reason)
}

// ConfigurationError reports disagreement between the feature schema and the
// persisted artifact bundle. It is not recoverable by the caller and should
// surface at load time, before any traffic is served.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return "model configuration: " + e.Detail
}

// ModelIntegrityError reports classifier output that violates the
// probability-distribution guarantee. It is never normalized away.
type ModelIntegrityError struct {
	Detail string
}

func (e *ModelIntegrityError) Error() string {
	return "model integrity: " + e.Detail
}
