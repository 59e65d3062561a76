package storage

import "time"

// SessionRecord is the persisted audit row for one payment session. It is
// written when the charge is accepted and updated on the terminal state,
// not on every poll tick.
type SessionRecord struct {
	ID            string
	CorrelationID int64
	MAC           string
	Phone         string
	PlanID        int64
	State         string
	PlanName      string
	Expiry        string
	Attempts      int
	Detail        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DevicePhone remembers the last phone number used from a device so the
// portal page can prefill the form.
type DevicePhone struct {
	MAC       string
	Phone     string
	UpdatedAt time.Time
}
