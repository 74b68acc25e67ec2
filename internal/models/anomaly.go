package models

import "time"

type AnomalyKind string

const (
	// AnomalyUnassignableMandatory marks a mandatory task that fell due with
	// no viable candidate. The run records a gap and continues.
	AnomalyUnassignableMandatory AnomalyKind = "unassignable_mandatory_task"
	// AnomalyLinkageViolation marks a call task whose pinned physician could
	// not take it, or whose main task was never assigned.
	AnomalyLinkageViolation AnomalyKind = "linkage_violation"
)

type Anomaly struct {
	Kind        AnomalyKind `json:"kind"`
	Date        time.Time   `json:"date"`
	TaskCode    string      `json:"task_code"`
	PhysicianID string      `json:"physician_id,omitempty"`
	Detail      string      `json:"detail"`
}
