package services

import (
	"time"

	"github.com/errandsexpress/backend/internal/models"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// transitions is the legal status graph per transaction type. Terminal
// statuses (approved, rejected, cancelled) have no outbound edges; refunds
// and adjustments follow the admin-only path like balance payments.
var transitions = map[models.TransactionType]map[models.TransactionStatus][]models.TransactionStatus{
	models.TxTypeErrandPayment: {
		models.TxStatusPending:          {models.TxStatusCustomerVerified, models.TxStatusRejected, models.TxStatusCancelled},
		models.TxStatusCustomerVerified: {models.TxStatusApproved, models.TxStatusRejected},
	},
	models.TxTypeBalancePayment: {
		models.TxStatusPending: {models.TxStatusApproved, models.TxStatusRejected, models.TxStatusCancelled},
	},
	models.TxTypeRefund: {
		models.TxStatusPending: {models.TxStatusApproved, models.TxStatusRejected, models.TxStatusCancelled},
	},
	models.TxTypeAdjustment: {
		models.TxStatusPending: {models.TxStatusApproved, models.TxStatusRejected, models.TxStatusCancelled},
	},
}

// CanTransition reports whether a transaction of the given type may move from
// one status to another.
func CanTransition(txType models.TransactionType, from, to models.TransactionStatus) bool {
	for _, next := range transitions[txType][from] {
		if next == to {
			return true
		}
	}
	return false
}

// transition moves the transaction to the target status or fails with
// ErrInvalidStateTransition. It mutates only the status; side-effect fields
// (verification, approval, rejection) are set by the callers below.
func transition(t *models.BalanceTransaction, to models.TransactionStatus) error {
	if !CanTransition(t.Type, t.Status, to) {
		return ErrInvalidStateTransition
	}
	t.Status = to
	return nil
}

// VerifyByCustomer applies the customer verification step: pending ->
// customer_verified, marking the transaction (not the post) payment-verified.
func VerifyByCustomer(t *models.BalanceTransaction, customer models.Actor) error {
	if customer.Role != models.RoleCustomer || t.CustomerID == nil || *t.CustomerID != customer.ID {
		return ErrForbidden
	}
	if t.Type != models.TxTypeErrandPayment {
		return ErrInvalidStateTransition
	}
	if err := transition(t, models.TxStatusCustomerVerified); err != nil {
		return err
	}
	now := timeNow()
	t.PaymentVerified = true
	t.PaymentVerifiedAt = &now
	return nil
}

// Approve moves the transaction to approved, stamping approver identity.
// approvedBy is nil for the configured auto-approval on customer verification.
func Approve(t *models.BalanceTransaction, approvedBy *models.Actor) error {
	if approvedBy != nil && approvedBy.Role != models.RoleAdmin {
		return ErrForbidden
	}
	if err := transition(t, models.TxStatusApproved); err != nil {
		return err
	}
	now := timeNow()
	t.ApprovedAt = &now
	if approvedBy != nil {
		id := approvedBy.ID
		t.ApprovedBy = &id
	}
	return nil
}

// Reject moves the transaction to rejected with a mandatory reason, retained
// for audit.
func Reject(t *models.BalanceTransaction, admin models.Actor, reason string) error {
	if admin.Role != models.RoleAdmin {
		return ErrForbidden
	}
	if reason == "" {
		v := models.NewValidationError()
		v.Add("reason", "reason is required")
		return v
	}
	if err := transition(t, models.TxStatusRejected); err != nil {
		return err
	}
	t.RejectionReason = reason
	return nil
}

// Cancel withdraws a pending transaction. Only the submitting runner or an
// admin may cancel.
func Cancel(t *models.BalanceTransaction, actor models.Actor) error {
	if actor.Role != models.RoleAdmin && !(actor.Role == models.RoleRunner && actor.ID == t.RunnerID) {
		return ErrForbidden
	}
	return transition(t, models.TxStatusCancelled)
}
