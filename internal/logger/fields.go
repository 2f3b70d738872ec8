package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields, propagated through the call chain.
const (
	// FieldRequestID is the HTTP request ID (UUID).
	FieldRequestID = "request_id"

	// FieldBatchID is the upload batch ID.
	FieldBatchID = "batch_id"

	// FieldDataset is the upload dataset (reference or scans).
	FieldDataset = "dataset"

	// FieldComponent is the component/module name.
	FieldComponent = "component"
)

// Standard metric fields, used for aggregation and alerting.
const (
	// FieldDurationMs is the execution duration in milliseconds.
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field.
	FieldCount = "count"

	// FieldStatus is the operation status.
	FieldStatus = "status"
)
