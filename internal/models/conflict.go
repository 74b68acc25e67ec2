package models

import "time"

type ConflictKind string

const (
	ConflictDuplicateAssignment ConflictKind = "duplicate_assignment"
	ConflictAvailability        ConflictKind = "availability_conflict"
	ConflictEligibility         ConflictKind = "eligibility_violation"
	ConflictDoubleBooking       ConflictKind = "double_booking"
	ConflictLinkage             ConflictKind = "linkage_violation"
	ConflictCapacityOverage     ConflictKind = "capacity_overage"
)

type ConflictSeverity string

const (
	SeverityError   ConflictSeverity = "error"
	SeverityWarning ConflictSeverity = "warning"
)

// Conflict describes one hard-constraint violation found in a Schedule.
// The checker reports; it never repairs.
type Conflict struct {
	Kind         ConflictKind     `json:"kind"`
	Severity     ConflictSeverity `json:"severity"`
	Date         time.Time        `json:"date"`
	TaskCode     string           `json:"task_code,omitempty"`
	PhysicianIDs []string         `json:"physician_ids,omitempty"`
	Detail       string           `json:"detail"`
}
