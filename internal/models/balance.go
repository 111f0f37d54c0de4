package models

import (
	"time"

	"github.com/google/uuid"
)

// BalanceStatus is the derived settlement state of a runner's balance.
type BalanceStatus string

const (
	BalanceActive         BalanceStatus = "active"
	BalancePaymentPending BalanceStatus = "payment_pending"
	BalancePaymentOverdue BalanceStatus = "payment_overdue"
)

func (s BalanceStatus) Valid() bool {
	switch s {
	case BalanceActive, BalancePaymentPending, BalancePaymentOverdue:
		return true
	}
	return false
}

// RunnerBalance is the single mutable aggregate of a runner's accrued
// commission. current_balance = total_earned - total_paid at all times.
// Created lazily on the first earned commission; never deleted.
type RunnerBalance struct {
	ID               uuid.UUID     `json:"id"`
	RunnerID         uuid.UUID     `json:"runner_id"`
	CurrentBalance   int64         `json:"current_balance"`
	TotalEarned      int64         `json:"total_earned"`
	TotalPaid        int64         `json:"total_paid"`
	LastPaymentDate  *time.Time    `json:"last_payment_date,omitempty"`
	BalanceStartedAt time.Time     `json:"balance_started_at"`
	Status           BalanceStatus `json:"status"`
	ReminderSent     bool          `json:"reminder_sent"`
	WarningSent      bool          `json:"warning_sent"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// NewRunnerBalance returns a zeroed balance aggregate for a runner.
func NewRunnerBalance(runnerID uuid.UUID, now time.Time) *RunnerBalance {
	return &RunnerBalance{
		ID:               uuid.New(),
		RunnerID:         runnerID,
		Status:           BalanceActive,
		BalanceStartedAt: now,
	}
}

// Entry directions for the applied-transaction ledger.
const (
	EntryCredit = "credit"
	EntryDebit  = "debit"
)

// BalanceEntry records a transaction applied to a runner balance. The unique
// constraint on transaction_id is what makes accrual idempotent.
type BalanceEntry struct {
	ID            uuid.UUID `json:"id"`
	RunnerID      uuid.UUID `json:"runner_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Direction     string    `json:"direction"`
	Amount        int64     `json:"amount"`
	BalanceAfter  int64     `json:"balance_after"`
	CreatedAt     time.Time `json:"created_at"`
}
