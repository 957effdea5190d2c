package handler

import (
	"domio/internal/residency/models"
	"domio/internal/residency/service"
)

// ResidenceResponse is the HTTP representation of a residence.
type ResidenceResponse struct {
	ID            string  `json:"id"`
	ResidentialID string  `json:"residential_id"`
	Type          string  `json:"type"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Available     bool    `json:"available"`
	ResidentID    *string `json:"resident_id,omitempty"`
}

// FromResidence converts a domain residence to its HTTP representation.
func FromResidence(residence *models.Residence) *ResidenceResponse {
	resp := &ResidenceResponse{
		ID:            residence.ID.String(),
		ResidentialID: residence.ResidentialID.String(),
		Type:          string(residence.Type),
		Name:          residence.Name,
		Description:   residence.Description,
		Available:     residence.Available,
	}
	if residence.ResidentID != nil {
		s := residence.ResidentID.String()
		resp.ResidentID = &s
	}
	return resp
}

// RepairResponse is the HTTP response for POST /residency/repair.
type RepairResponse struct {
	UserID     string   `json:"user_id"`
	Repaired   []string `json:"repaired"`
	Consistent bool     `json:"consistent"`
}

// FromRepairReport converts a repair report to its HTTP representation.
func FromRepairReport(report *service.RepairReport) *RepairResponse {
	resp := &RepairResponse{
		UserID:     report.UserID.String(),
		Repaired:   report.Repaired,
		Consistent: report.Consistent,
	}
	if resp.Repaired == nil {
		resp.Repaired = []string{}
	}
	return resp
}

// StatusResponse acknowledges an operation with no entity payload.
type StatusResponse struct {
	Status string `json:"status"`
}
