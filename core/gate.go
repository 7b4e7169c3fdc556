package core

// GateOutcome identifies which ingestion gate settled a webhook
// delivery. Exactly one outcome is produced per invocation.
type GateOutcome string

const (
	GateOutcomeVerified  GateOutcome = "verified"
	GateOutcomeInvalid   GateOutcome = "signature_invalid"
	GateOutcomeExpired   GateOutcome = "event_expired"
	GateOutcomeDuplicate GateOutcome = "duplicate"
)

// Rejected reports whether the delivery was refused before dispatch.
func (o GateOutcome) Rejected() bool {
	return o == GateOutcomeInvalid || o == GateOutcomeExpired
}
