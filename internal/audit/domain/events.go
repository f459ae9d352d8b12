package domain

import "time"

// ProgramSnapshot is the full-row payload published on audit.submitted,
// audit-program-approved and audit-program-rejected.
type ProgramSnapshot struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenantId"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Year            int       `json:"year"`
	Status          string    `json:"status"`
	CreatedBy       string    `json:"createdBy"`
	ApprovedBy      string    `json:"approvedBy,omitempty"`
	RejectionReason string    `json:"rejectionReason,omitempty"`
	OccurredAt      time.Time `json:"occurredAt"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (p AuditProgram) Snapshot(occurredAt time.Time) ProgramSnapshot {
	snap := ProgramSnapshot{
		ID:              p.ID.String(),
		TenantID:        p.TenantID.String(),
		Title:           p.Title,
		Description:     p.Description,
		Year:            p.Year,
		Status:          p.Status,
		CreatedBy:       p.CreatedBy.String(),
		RejectionReason: p.RejectionReason,
		OccurredAt:      occurredAt,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if p.ApprovedBy != nil {
		snap.ApprovedBy = p.ApprovedBy.String()
	}
	return snap
}
