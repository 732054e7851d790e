package logging

// Standardized attribute keys. Console output treats component specially;
// everything else renders as key=value pairs.
const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldImpact    = "impact"
	FieldEndpoint  = "endpoint"
	FieldMode      = "mode"
)
