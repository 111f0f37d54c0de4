package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/errandsexpress/backend/internal/models"
)

// AccrualBalanceRepo is the minimal balance repository interface for accrual.
type AccrualBalanceRepo interface {
	UpdateTx(ctx context.Context, tx pgx.Tx, b *models.RunnerBalance) error
}

// AccrualEntryRepo is the minimal applied-entry ledger interface for accrual.
type AccrualEntryRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, e *models.BalanceEntry) error
}

// AccrualEngine maintains RunnerBalance as a materialized view over approved
// transactions. It is the only writer of balance totals; every mutation is
// recorded in balance_entries, whose unique transaction_id constraint makes
// a repeated credit or debit of the same transaction fail instead of
// double-counting.
type AccrualEngine struct {
	Balances AccrualBalanceRepo
	Entries  AccrualEntryRepo

	// OverdueThreshold and OverdueAfter drive payment_overdue derivation: a
	// balance at or above the threshold and older than the duration is
	// overdue.
	OverdueThreshold int64
	OverdueAfter     time.Duration
}

func NewAccrualEngine(balances AccrualBalanceRepo, entries AccrualEntryRepo, overdueThreshold int64, overdueAfter time.Duration) *AccrualEngine {
	return &AccrualEngine{
		Balances:         balances,
		Entries:          entries,
		OverdueThreshold: overdueThreshold,
		OverdueAfter:     overdueAfter,
	}
}

// Credit applies an approved errand_payment: the runner earns the service fee
// net of platform commission. Call within a transaction holding the balance
// row lock. hasUnresolvedPayment feeds status derivation.
func (e *AccrualEngine) Credit(ctx context.Context, tx pgx.Tx, bal *models.RunnerBalance, txn *models.BalanceTransaction, hasUnresolvedPayment bool) error {
	net := txn.RunnerNet()
	entry := &models.BalanceEntry{
		ID:            uuid.New(),
		RunnerID:      bal.RunnerID,
		TransactionID: txn.ID,
		Direction:     models.EntryCredit,
		Amount:        net,
		BalanceAfter:  bal.CurrentBalance + net,
	}
	if err := e.Entries.CreateTx(ctx, tx, entry); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyApplied
		}
		return err
	}
	bal.TotalEarned += net
	bal.CurrentBalance += net
	bal.Status = e.DeriveStatus(bal, hasUnresolvedPayment, timeNow())
	return e.Balances.UpdateTx(ctx, tx, bal)
}

// Debit applies an approved balance_payment: the full settlement amount comes
// off the runner's outstanding balance. A debit that would drive the balance
// negative fails with ErrInsufficientBalance and leaves the aggregate
// unchanged.
func (e *AccrualEngine) Debit(ctx context.Context, tx pgx.Tx, bal *models.RunnerBalance, txn *models.BalanceTransaction, hasUnresolvedPayment bool) error {
	amount := txn.TotalAmount
	if amount > bal.CurrentBalance {
		return ErrInsufficientBalance
	}
	entry := &models.BalanceEntry{
		ID:            uuid.New(),
		RunnerID:      bal.RunnerID,
		TransactionID: txn.ID,
		Direction:     models.EntryDebit,
		Amount:        amount,
		BalanceAfter:  bal.CurrentBalance - amount,
	}
	if err := e.Entries.CreateTx(ctx, tx, entry); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyApplied
		}
		return err
	}
	now := timeNow()
	bal.TotalPaid += amount
	bal.CurrentBalance -= amount
	bal.LastPaymentDate = &now
	if bal.CurrentBalance == 0 {
		// Fully settled: the overdue clock restarts with the next commission.
		bal.BalanceStartedAt = now
		bal.ReminderSent = false
		bal.WarningSent = false
	}
	bal.Status = e.DeriveStatus(bal, hasUnresolvedPayment, now)
	return e.Balances.UpdateTx(ctx, tx, bal)
}

// DeriveStatus recomputes the balance status: payment_pending while a
// balance_payment is outstanding, payment_overdue past the configured
// threshold and age, otherwise active. Read-only; callers persist.
func (e *AccrualEngine) DeriveStatus(bal *models.RunnerBalance, hasUnresolvedPayment bool, now time.Time) models.BalanceStatus {
	if hasUnresolvedPayment {
		return models.BalancePaymentPending
	}
	if bal.CurrentBalance >= e.OverdueThreshold && now.Sub(bal.BalanceStartedAt) > e.OverdueAfter {
		return models.BalancePaymentOverdue
	}
	return models.BalanceActive
}

// ApproachingOverdue reports a balance that has crossed the amount threshold
// but not yet the age threshold; the sweep flags these for a reminder.
func (e *AccrualEngine) ApproachingOverdue(bal *models.RunnerBalance, now time.Time) bool {
	return bal.CurrentBalance >= e.OverdueThreshold && now.Sub(bal.BalanceStartedAt) <= e.OverdueAfter
}
