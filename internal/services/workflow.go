package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/errandsexpress/backend/internal/models"
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WorkflowPostRepo is the post repository subset the orchestrator needs.
type WorkflowPostRepo interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Post, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, p *models.Post) error
}

// WorkflowTxnRepo is the transaction repository subset the orchestrator needs.
type WorkflowTxnRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.BalanceTransaction) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.BalanceTransaction, error)
	GetUnresolvedErrandPaymentForUpdate(ctx context.Context, tx pgx.Tx, postID uuid.UUID) (*models.BalanceTransaction, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, t *models.BalanceTransaction) error
	HasErrandPayment(ctx context.Context, tx pgx.Tx, postID uuid.UUID) (bool, error)
	HasUnresolvedErrandPayment(ctx context.Context, tx pgx.Tx, postID uuid.UUID) (bool, error)
	HasUnresolvedBalancePayment(ctx context.Context, tx pgx.Tx, runnerID uuid.UUID) (bool, error)
}

// WorkflowBalanceRepo is the balance repository subset the orchestrator needs.
type WorkflowBalanceRepo interface {
	GetByRunnerIDForUpdate(ctx context.Context, tx pgx.Tx, runnerID uuid.UUID) (*models.RunnerBalance, error)
	CreateTx(ctx context.Context, tx pgx.Tx, b *models.RunnerBalance) error
	ListAll(ctx context.Context) ([]*models.RunnerBalance, error)
}

// WorkflowConfig holds the orchestrator's tunables.
type WorkflowConfig struct {
	// AutoApproveOnVerify makes customer verification of an errand payment
	// perform the approval side effects synchronously, skipping the manual
	// admin step.
	AutoApproveOnVerify bool
	// CommissionPercent is the platform's cut of the service fee, fixed on
	// the transaction at submission.
	CommissionPercent int64
}

// Workflow coordinates post status, transaction transitions, and balance
// accrual as one atomic operation per actor action. Every write runs in a
// single database transaction holding NOWAIT row locks on the rows it
// mutates, so concurrent operations on the same runner or transaction
// serialize or fail fast with ErrConflict.
type Workflow struct {
	pool     TxBeginner
	posts    WorkflowPostRepo
	txns     WorkflowTxnRepo
	balances WorkflowBalanceRepo
	accrual  *AccrualEngine
	cfg      WorkflowConfig
	log      *slog.Logger
}

func NewWorkflow(pool TxBeginner, posts WorkflowPostRepo, txns WorkflowTxnRepo, balances WorkflowBalanceRepo, accrual *AccrualEngine, cfg WorkflowConfig, log *slog.Logger) *Workflow {
	if log == nil {
		log = slog.Default()
	}
	return &Workflow{pool: pool, posts: posts, txns: txns, balances: balances, accrual: accrual, cfg: cfg, log: log}
}

// mapLookupErr translates persistence lookup failures into the domain
// taxonomy: missing rows and lock contention are expected outcomes.
func mapLookupErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case isLockNotAvailable(err):
		return ErrConflict
	default:
		return err
	}
}

// SubmitPaymentInput is a runner's errand payment submission.
type SubmitPaymentInput struct {
	OriginalAmount int64
	ServiceFee     int64
	PaymentMethod  models.PaymentMethod
	ProofImage     string
	Notes          string
}

// SubmitErrandPayment creates a pending errand_payment for an accepted post
// assigned to the submitting runner. At most one unresolved errand payment
// may exist per post.
func (s *Workflow) SubmitErrandPayment(ctx context.Context, actor models.Actor, postID uuid.UUID, in SubmitPaymentInput) (*models.BalanceTransaction, error) {
	if actor.Role != models.RoleRunner {
		return nil, ErrForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	post, err := s.posts.GetByIDForUpdate(ctx, tx, postID)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	if post.RunnerID == nil || *post.RunnerID != actor.ID {
		return nil, ErrForbidden
	}
	if post.Status != models.PostStatusAccepted {
		return nil, ErrConflict
	}

	dup, err := s.txns.HasUnresolvedErrandPayment(ctx, tx, postID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, ErrConflict
	}

	commission := in.ServiceFee * s.cfg.CommissionPercent / 100
	txn, err := models.NewErrandPayment(actor.ID, post.CustomerID, postID,
		in.OriginalAmount, in.ServiceFee, commission, in.PaymentMethod, in.ProofImage, in.Notes)
	if err != nil {
		return nil, err
	}
	if err := s.txns.CreateTx(ctx, tx, txn); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return txn, nil
}

// VerifyErrandPayment applies the post customer's verification to the post's
// open errand payment. When auto-approval is configured, the approval side
// effects (post status, balance credit) run in the same transaction, with
// approved_by left empty.
func (s *Workflow) VerifyErrandPayment(ctx context.Context, actor models.Actor, postID uuid.UUID) (*models.BalanceTransaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	txn, err := s.txns.GetUnresolvedErrandPaymentForUpdate(ctx, tx, postID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish "never submitted" from "already resolved".
			exists, herr := s.txns.HasErrandPayment(ctx, tx, postID)
			if herr != nil {
				return nil, herr
			}
			if exists {
				return nil, ErrConflict
			}
			return nil, ErrNotFound
		}
		return nil, mapLookupErr(err)
	}
	if err := VerifyByCustomer(txn, actor); err != nil {
		return nil, err
	}
	if s.cfg.AutoApproveOnVerify {
		if err := s.approveLocked(ctx, tx, txn, nil); err != nil {
			return nil, err
		}
	}
	if err := s.txns.UpdateTx(ctx, tx, txn); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return txn, nil
}

// SubmitBalanceInput is a runner's commission settlement submission.
type SubmitBalanceInput struct {
	Amount        int64
	PaymentMethod models.PaymentMethod
	ProofImage    string
	Notes         string
}

// SubmitBalancePayment creates a pending balance_payment bounded by the
// runner's outstanding balance. One outstanding withdrawal at a time.
func (s *Workflow) SubmitBalancePayment(ctx context.Context, actor models.Actor, in SubmitBalanceInput) (*models.BalanceTransaction, error) {
	if actor.Role != models.RoleRunner {
		return nil, ErrForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	bal, err := s.balances.GetByRunnerIDForUpdate(ctx, tx, actor.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoOutstandingBalance
		}
		return nil, mapLookupErr(err)
	}
	if bal.CurrentBalance <= 0 {
		return nil, ErrNoOutstandingBalance
	}
	if in.Amount > bal.CurrentBalance {
		return nil, ErrInsufficientBalance
	}

	outstanding, err := s.txns.HasUnresolvedBalancePayment(ctx, tx, actor.ID)
	if err != nil {
		return nil, err
	}
	if outstanding {
		return nil, ErrConflict
	}

	txn, err := models.NewBalancePayment(actor.ID, in.Amount, in.PaymentMethod, in.ProofImage, in.Notes)
	if err != nil {
		return nil, err
	}
	if err := s.txns.CreateTx(ctx, tx, txn); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}

	bal.Status = s.accrual.DeriveStatus(bal, true, timeNow())
	if err := s.accrual.Balances.UpdateTx(ctx, tx, bal); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return txn, nil
}

// ApprovePayment approves a transaction by type: customer_verified ->
// approved for errand payments, pending -> approved for balance payments.
// txType pins the admin route to one transaction class; an id of another
// class is not found on that route.
func (s *Workflow) ApprovePayment(ctx context.Context, admin models.Actor, txnID uuid.UUID, txType models.TransactionType, notes string) (*models.BalanceTransaction, error) {
	if admin.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	txn, err := s.txns.GetByIDForUpdate(ctx, tx, txnID)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	if txn.Type != txType {
		return nil, ErrNotFound
	}
	if notes != "" {
		txn.Notes = notes
	}
	if err := s.approveLocked(ctx, tx, txn, &admin); err != nil {
		return nil, err
	}
	if err := s.txns.UpdateTx(ctx, tx, txn); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return txn, nil
}

// approveLocked performs the approval transition and its side effects inside
// the caller's transaction. approvedBy is nil for auto-approval.
func (s *Workflow) approveLocked(ctx context.Context, tx pgx.Tx, txn *models.BalanceTransaction, approvedBy *models.Actor) error {
	if err := Approve(txn, approvedBy); err != nil {
		return err
	}

	switch txn.Type {
	case models.TxTypeErrandPayment:
		bal, err := s.lockOrCreateBalance(ctx, tx, txn.RunnerID)
		if err != nil {
			return err
		}
		outstanding, err := s.txns.HasUnresolvedBalancePayment(ctx, tx, txn.RunnerID)
		if err != nil {
			return err
		}
		if err := s.accrual.Credit(ctx, tx, bal, txn, outstanding); err != nil {
			return err
		}
		if txn.PostID != nil {
			if err := s.markPostRunnerCompleted(ctx, tx, *txn.PostID); err != nil {
				return err
			}
		}

	case models.TxTypeBalancePayment:
		bal, err := s.balances.GetByRunnerIDForUpdate(ctx, tx, txn.RunnerID)
		if err != nil {
			return mapLookupErr(err)
		}
		// The payment being approved is the outstanding one; it resolves here.
		if err := s.accrual.Debit(ctx, tx, bal, txn, false); err != nil {
			return err
		}

	default:
		// Refunds and adjustments change status only; no accrual effect.
	}
	return nil
}

// markPostRunnerCompleted applies the approved-payment side effects to the
// post: accepted -> runner_completed, completion and verification timestamps.
func (s *Workflow) markPostRunnerCompleted(ctx context.Context, tx pgx.Tx, postID uuid.UUID) error {
	post, err := s.posts.GetByIDForUpdate(ctx, tx, postID)
	if err != nil {
		return mapLookupErr(err)
	}
	now := timeNow()
	if post.Status == models.PostStatusAccepted {
		post.Status = models.PostStatusRunnerCompleted
	}
	if post.CompletedAt == nil {
		post.CompletedAt = &now
	}
	post.PaymentVerified = true
	if post.PaymentVerifiedAt == nil {
		post.PaymentVerifiedAt = &now
	}
	return s.posts.UpdateTx(ctx, tx, post)
}

// RejectPayment rejects a pending or customer_verified transaction with a
// mandatory reason. The runner balance totals are untouched; for a balance
// payment the derived status clears payment_pending.
func (s *Workflow) RejectPayment(ctx context.Context, admin models.Actor, txnID uuid.UUID, txType models.TransactionType, reason string) (*models.BalanceTransaction, error) {
	if admin.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	txn, err := s.txns.GetByIDForUpdate(ctx, tx, txnID)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	if txn.Type != txType {
		return nil, ErrNotFound
	}
	if err := Reject(txn, admin, reason); err != nil {
		return nil, err
	}
	if err := s.txns.UpdateTx(ctx, tx, txn); err != nil {
		return nil, err
	}
	if txn.Type == models.TxTypeBalancePayment {
		if err := s.rederiveBalanceStatus(ctx, tx, txn.RunnerID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return txn, nil
}

// CancelPayment withdraws a pending transaction; allowed for the submitting
// runner or an admin.
func (s *Workflow) CancelPayment(ctx context.Context, actor models.Actor, txnID uuid.UUID) (*models.BalanceTransaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	txn, err := s.txns.GetByIDForUpdate(ctx, tx, txnID)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	if err := Cancel(txn, actor); err != nil {
		return nil, err
	}
	if err := s.txns.UpdateTx(ctx, tx, txn); err != nil {
		return nil, err
	}
	if txn.Type == models.TxTypeBalancePayment {
		if err := s.rederiveBalanceStatus(ctx, tx, txn.RunnerID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return txn, nil
}

// rederiveBalanceStatus recomputes a runner's balance status after a
// balance_payment resolves without settling. No balance row yet is fine.
func (s *Workflow) rederiveBalanceStatus(ctx context.Context, tx pgx.Tx, runnerID uuid.UUID) error {
	bal, err := s.balances.GetByRunnerIDForUpdate(ctx, tx, runnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return mapLookupErr(err)
	}
	outstanding, err := s.txns.HasUnresolvedBalancePayment(ctx, tx, runnerID)
	if err != nil {
		return err
	}
	bal.Status = s.accrual.DeriveStatus(bal, outstanding, timeNow())
	return s.accrual.Balances.UpdateTx(ctx, tx, bal)
}

// lockOrCreateBalance returns the runner's locked balance row, creating the
// aggregate on first commission.
func (s *Workflow) lockOrCreateBalance(ctx context.Context, tx pgx.Tx, runnerID uuid.UUID) (*models.RunnerBalance, error) {
	bal, err := s.balances.GetByRunnerIDForUpdate(ctx, tx, runnerID)
	if err == nil {
		return bal, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapLookupErr(err)
	}
	bal = models.NewRunnerBalance(runnerID, timeNow())
	if err := s.balances.CreateTx(ctx, tx, bal); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return bal, nil
}

// SweepBalanceStatuses re-derives every runner balance status and overdue
// flags. Rows locked by an in-flight settlement are skipped and picked up on
// the next run.
func (s *Workflow) SweepBalanceStatuses(ctx context.Context) (int, error) {
	bals, err := s.balances.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, snapshot := range bals {
		n, err := s.sweepOne(ctx, snapshot.RunnerID)
		if err != nil {
			if errors.Is(err, ErrConflict) {
				continue
			}
			return changed, err
		}
		changed += n
	}
	return changed, nil
}

func (s *Workflow) sweepOne(ctx context.Context, runnerID uuid.UUID) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	bal, err := s.balances.GetByRunnerIDForUpdate(ctx, tx, runnerID)
	if err != nil {
		return 0, mapLookupErr(err)
	}
	outstanding, err := s.txns.HasUnresolvedBalancePayment(ctx, tx, runnerID)
	if err != nil {
		return 0, err
	}

	now := timeNow()
	status := s.accrual.DeriveStatus(bal, outstanding, now)
	reminder, warning := bal.ReminderSent, bal.WarningSent
	if status == models.BalancePaymentOverdue {
		reminder, warning = true, true
	} else if s.accrual.ApproachingOverdue(bal, now) {
		reminder = true
	}

	if status == bal.Status && reminder == bal.ReminderSent && warning == bal.WarningSent {
		return 0, nil
	}
	bal.Status = status
	bal.ReminderSent = reminder
	bal.WarningSent = warning
	if err := s.accrual.Balances.UpdateTx(ctx, tx, bal); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	s.log.Info("balance status swept", "runner_id", runnerID, "status", status)
	return 1, nil
}
