package models

import (
	"time"

	"github.com/google/uuid"
)

// PostStatus is the errand lifecycle state.
type PostStatus string

const (
	PostStatusPending         PostStatus = "pending"
	PostStatusAccepted        PostStatus = "accepted"
	PostStatusRunnerCompleted PostStatus = "runner_completed"
	PostStatusCompleted       PostStatus = "completed"
)

func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusPending, PostStatusAccepted, PostStatusRunnerCompleted, PostStatusCompleted:
		return true
	}
	return false
}

type Post struct {
	ID                uuid.UUID  `json:"id"`
	CustomerID        uuid.UUID  `json:"customer_id"`
	RunnerID          *uuid.UUID `json:"runner_id,omitempty"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Status            PostStatus `json:"status"`
	PaymentVerified   bool       `json:"payment_verified"`
	PaymentVerifiedAt *time.Time `json:"payment_verified_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	Archived          bool       `json:"archived"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
