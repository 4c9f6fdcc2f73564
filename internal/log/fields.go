package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRunID     = "run_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldStage     = "stage"

	// Media fields
	FieldRole      = "role"
	FieldReference = "reference"
	FieldPhase     = "phase"
	FieldOffsetMS  = "offset_ms"
	FieldFPS       = "fps"
	FieldDuration  = "duration_s"

	// Path fields
	FieldPath   = "path"
	FieldOutput = "output"
)
