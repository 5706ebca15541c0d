package domain

import "fmt"

// Error types for consistent error handling across the pipeline.
// Decode, Validation and Serialization errors are fatal to a request;
// Resolution, Download, CircuitOpen and Timeout are absorbed per row.

// ErrDecode indicates the uploaded bytes are not parseable as CSV.
type ErrDecode struct {
	Err error
}

func (e *ErrDecode) Error() string {
	return fmt.Sprintf("failed to parse csv: %v", e.Err)
}

func (e *ErrDecode) Unwrap() error {
	return e.Err
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrResolution indicates a receipt page could not be turned into a descriptor.
type ErrResolution struct {
	Link   string
	Reason string
	Err    error
}

func (e *ErrResolution) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve receipt %s: %s: %v", e.Link, e.Reason, e.Err)
	}
	return fmt.Sprintf("resolve receipt %s: %s", e.Link, e.Reason)
}

func (e *ErrResolution) Unwrap() error {
	return e.Err
}

// ErrDownload indicates a receipt file could not be downloaded or buffered.
type ErrDownload struct {
	URL string
	Err error
}

func (e *ErrDownload) Error() string {
	return fmt.Sprintf("download receipt %s: %v", e.URL, e.Err)
}

func (e *ErrDownload) Unwrap() error {
	return e.Err
}

// ErrSerialization indicates the workbook or the archive could not be built.
type ErrSerialization struct {
	Artifact string
	Err      error
}

func (e *ErrSerialization) Error() string {
	return fmt.Sprintf("failed to build %s: %v", e.Artifact, e.Err)
}

func (e *ErrSerialization) Unwrap() error {
	return e.Err
}

// ErrExternalService indicates a receipt host answered with an unexpected
// status or could not be reached. StatusCode is zero for transport failures.
type ErrExternalService struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *ErrExternalService) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("external service error [%s]: status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// HostFailure reports whether the error says something about the host itself
// rather than the requested resource: transport failures and 5xx answers.
func (e *ErrExternalService) HostFailure() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrDuplicateEntry indicates an archive path was inserted twice.
type ErrDuplicateEntry struct {
	Path string
}

func (e *ErrDuplicateEntry) Error() string {
	return fmt.Sprintf("duplicate archive entry: %s", e.Path)
}
