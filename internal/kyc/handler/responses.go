package handler

import (
	"time"

	"custody/internal/kyc/models"
	audit "custody/pkg/platform/audit"
)

// AccountResponse is the admin view of a customer.
type AccountResponse struct {
	Account          string    `json:"account"`
	Tier             int       `json:"tier"`
	Approved         bool      `json:"approved"`
	EnhancedVerified bool      `json:"enhanced_verified"`
	FullName         string    `json:"full_name"`
	Country          string    `json:"country"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func fromAccount(a *models.Account) *AccountResponse {
	return &AccountResponse{
		Account:          a.ID.String(),
		Tier:             int(a.Tier),
		Approved:         a.Approved,
		EnhancedVerified: a.EnhancedVerified,
		FullName:         a.Data.FullName,
		Country:          a.Data.Country,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// EventResponse is one compliance event in an account's audit trail.
type EventResponse struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Type        string    `json:"type"`
	Detail      string    `json:"detail,omitempty"`
	OperationID string    `json:"operation_id,omitempty"`
	ActorID     string    `json:"actor_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type eventsResponse struct {
	Account string          `json:"account"`
	Events  []EventResponse `json:"events"`
}

func fromEvents(account string, events []audit.Event) *eventsResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventResponse{
			ID:          e.ID.String(),
			Category:    string(e.Category),
			Type:        string(e.Type),
			Detail:      e.Detail,
			OperationID: e.OperationID,
			ActorID:     e.ActorID,
			Timestamp:   e.Timestamp,
		})
	}
	return &eventsResponse{Account: account, Events: out}
}
