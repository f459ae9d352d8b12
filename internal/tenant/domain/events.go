package domain

import "time"

// Event payloads are full snapshots of the owning row, never deltas, so a
// replayed event converges to the same replica state.

type TenantSnapshot struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Domain              string    `json:"domain"`
	LogoURL             string    `json:"logoUrl,omitempty"`
	Address             string    `json:"address,omitempty"`
	City                string    `json:"city,omitempty"`
	Country             string    `json:"country,omitempty"`
	Phone               string    `json:"phone,omitempty"`
	Email               string    `json:"email"`
	Type                string    `json:"type"`
	AccreditationNumber string    `json:"accreditationNumber,omitempty"`
	EstablishedYear     int       `json:"establishedYear,omitempty"`
	Timezone            string    `json:"timezone,omitempty"`
	Currency            string    `json:"currency,omitempty"`
	Status              string    `json:"status"`
	CreatedBy           string    `json:"createdBy"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

type UserSnapshot struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	TenantID  string    `json:"tenantId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type DepartmentSnapshot struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	TenantID  string    `json:"tenantId"`
	HeadID    string    `json:"headId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Snapshot converts the row into its event payload.
func (t Tenant) Snapshot() TenantSnapshot {
	return TenantSnapshot{
		ID:                  t.ID.String(),
		Name:                t.Name,
		Domain:              t.Domain,
		LogoURL:             t.LogoURL,
		Address:             t.Address,
		City:                t.City,
		Country:             t.Country,
		Phone:               t.Phone,
		Email:               t.Email,
		Type:                t.Type,
		AccreditationNumber: t.AccreditationNumber,
		EstablishedYear:     t.EstablishedYear,
		Timezone:            t.Timezone,
		Currency:            t.Currency,
		Status:              t.Status,
		CreatedBy:           t.CreatedBy,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

func (u User) Snapshot() UserSnapshot {
	snap := UserSnapshot{
		ID:        u.ID.String(),
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
	if u.TenantID != nil {
		snap.TenantID = u.TenantID.String()
	}
	return snap
}

func (d Department) Snapshot() DepartmentSnapshot {
	return DepartmentSnapshot{
		ID:        d.ID.String(),
		Name:      d.Name,
		Code:      d.Code,
		TenantID:  d.TenantID.String(),
		HeadID:    d.HeadID.String(),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
