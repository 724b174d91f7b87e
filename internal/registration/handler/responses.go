package handler

import (
	"time"

	"alumreg/internal/registration/models"
	"alumreg/internal/registration/service"
)

// StatusResponse is the public view of a registration. It deliberately
// omits reviewer identity and internal review notes.
type StatusResponse struct {
	ID                   string     `json:"id"`
	RegistrationNumber   string     `json:"registrationNumber"`
	FullName             string     `json:"fullName"`
	Status               string     `json:"status"`
	RequiresManualReview bool       `json:"requiresManualReview"`
	EmailVerified        bool       `json:"emailVerified"`
	RejectionReason      string     `json:"rejectionReason,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	ApprovedAt           *time.Time `json:"approvedAt,omitempty"`
}

func toStatusResponse(reg *models.Registration) StatusResponse {
	return StatusResponse{
		ID:                   reg.ID.String(),
		RegistrationNumber:   reg.RegistrationNumber,
		FullName:             reg.FullName,
		Status:               string(reg.Status),
		RequiresManualReview: reg.RequiresManualReview,
		EmailVerified:        reg.EmailVerified,
		RejectionReason:      reg.RejectionReason,
		CreatedAt:            reg.CreatedAt,
		ApprovedAt:           reg.ApprovedAt,
	}
}

// DuplicateResponse answers the pre-submission availability check.
type DuplicateResponse struct {
	Field  string `json:"field"`
	Exists bool   `json:"exists"`
}

// BulkResponse reports a batch outcome: per-item results plus aggregates.
type BulkResponse struct {
	Results   []service.BulkResult `json:"results"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
}

func toBulkResponse(results []service.BulkResult) BulkResponse {
	resp := BulkResponse{Results: results}
	for _, r := range results {
		if r.OK {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	return resp
}

// ListResponse is one page of registrations for the admin console.
type ListResponse struct {
	Items    []*models.Registration `json:"items"`
	Total    int                    `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"pageSize"`
}
