package audit

import "time"

// Action identifies what happened to an identity.
type Action string

const (
	ActionProvisioned Action = "identity.provisioned"
	ActionReset       Action = "credential.reset"
	ActionBatchRun    Action = "batch.completed"

	// ActionPartialProvisioning marks the residual-failure window: a later
	// saga step failed after the credential existed and the credential could
	// not be removed. Operators reconcile these manually, so the event is
	// kept distinct from ordinary failures.
	ActionPartialProvisioning Action = "identity.partial_provisioning"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out. The secret never
// appears in an event.
type Event struct {
	Timestamp     time.Time
	OperatorID    string
	InstitutionID string
	Action        Action
	Role          string
	EnrollmentID  string
	AuthSubjectID string
	Reason        string
}
