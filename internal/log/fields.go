package log

// Canonical field name constants for structured logging.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldRequestID = "request_id"

	// Controller fields
	FieldAction     = "action"
	FieldOldState   = "old_state"
	FieldNewState   = "new_state"
	FieldMarker     = "marker"
	FieldGeneration = "generation"

	// Media server fields
	FieldItemID   = "item_id"
	FieldDeviceID = "device_id"
	FieldTaskID   = "task_id"
	FieldUserID   = "user_id"
	FieldPage     = "page"
	FieldTopic    = "topic"

	// HTTP fields
	FieldMethod  = "method"
	FieldPath    = "path"
	FieldStatus  = "status"
	FieldBaseURL = "base_url"
	FieldAttempt = "attempt"
)
