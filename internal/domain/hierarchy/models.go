package hierarchy

import "time"

// Assignment is one stored supervision row. The row itself carries no role;
// the subordinate's role decides which relation it belongs to.
type Assignment struct {
	ID            string    `json:"id"`
	SubordinateID string    `json:"subordinateId"`
	SupervisorID  string    `json:"supervisorId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ClinicianSupervision maps a clinician id to the supervising director id.
type ClinicianSupervision map[string]string

// DirectorSupervision maps a subordinate director id to the supervising director id.
type DirectorSupervision map[string]string
