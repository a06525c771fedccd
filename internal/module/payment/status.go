package payment

// Status is the internal payment status of a transaction.
type Status string

// Payment statuses, ordered by lifecycle progression.
const (
	StatusPending           Status = "pending"
	StatusAuthorized        Status = "authorized"
	StatusPaid              Status = "paid"
	StatusPartiallyRefunded Status = "partially_refunded"
	StatusRefunded          Status = "refunded"
	StatusVoided            Status = "voided"
	StatusFailed            Status = "failed"

	// StatusOther marks a provider status with no internal equivalent.
	// It is never persisted; callers treat it as "no transition".
	StatusOther Status = "other"
)

// String returns the status as a string.
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusRefunded, StatusVoided, StatusFailed:
		return true
	}
	return false
}
