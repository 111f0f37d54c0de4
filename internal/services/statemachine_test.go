package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/errandsexpress/backend/internal/models"
)

func fixedNow(t *testing.T) time.Time {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	orig := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = orig })
	return now
}

func pendingErrandPayment(t *testing.T, runnerID, customerID uuid.UUID) *models.BalanceTransaction {
	t.Helper()
	postID := uuid.New()
	txn, err := models.NewErrandPayment(runnerID, customerID, postID, 500, 50, 5, models.MethodGCash, "", "")
	if err != nil {
		t.Fatalf("NewErrandPayment: %v", err)
	}
	return txn
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		txType models.TransactionType
		from   models.TransactionStatus
		to     models.TransactionStatus
		want   bool
	}{
		{models.TxTypeErrandPayment, models.TxStatusPending, models.TxStatusCustomerVerified, true},
		{models.TxTypeErrandPayment, models.TxStatusPending, models.TxStatusApproved, false},
		{models.TxTypeErrandPayment, models.TxStatusCustomerVerified, models.TxStatusApproved, true},
		{models.TxTypeErrandPayment, models.TxStatusCustomerVerified, models.TxStatusCancelled, false},
		{models.TxTypeErrandPayment, models.TxStatusApproved, models.TxStatusRejected, false},
		{models.TxTypeErrandPayment, models.TxStatusRejected, models.TxStatusPending, false},
		{models.TxTypeBalancePayment, models.TxStatusPending, models.TxStatusApproved, true},
		{models.TxTypeBalancePayment, models.TxStatusPending, models.TxStatusCustomerVerified, false},
		{models.TxTypeBalancePayment, models.TxStatusCancelled, models.TxStatusApproved, false},
		{models.TxTypeRefund, models.TxStatusPending, models.TxStatusApproved, true},
		{models.TxTypeAdjustment, models.TxStatusPending, models.TxStatusRejected, true},
	}
	for _, c := range cases {
		if got := CanTransition(c.txType, c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s -> %s): got %v, want %v", c.txType, c.from, c.to, got, c.want)
		}
	}
}

func TestVerifyByCustomer(t *testing.T) {
	now := fixedNow(t)
	runner := uuid.New()
	customer := uuid.New()
	txn := pendingErrandPayment(t, runner, customer)

	if err := VerifyByCustomer(txn, models.Actor{ID: customer, Role: models.RoleCustomer}); err != nil {
		t.Fatalf("VerifyByCustomer: %v", err)
	}
	if txn.Status != models.TxStatusCustomerVerified {
		t.Errorf("status: got %s, want customer_verified", txn.Status)
	}
	if !txn.PaymentVerified || txn.PaymentVerifiedAt == nil || !txn.PaymentVerifiedAt.Equal(now) {
		t.Error("verification timestamp not set")
	}
}

func TestVerifyByCustomer_WrongActor(t *testing.T) {
	runner := uuid.New()
	customer := uuid.New()

	// A different customer.
	txn := pendingErrandPayment(t, runner, customer)
	if err := VerifyByCustomer(txn, models.Actor{ID: uuid.New(), Role: models.RoleCustomer}); !errors.Is(err, ErrForbidden) {
		t.Errorf("other customer: got %v, want ErrForbidden", err)
	}

	// The runner themselves.
	txn = pendingErrandPayment(t, runner, customer)
	if err := VerifyByCustomer(txn, models.Actor{ID: runner, Role: models.RoleRunner}); !errors.Is(err, ErrForbidden) {
		t.Errorf("runner: got %v, want ErrForbidden", err)
	}
	if txn.Status != models.TxStatusPending {
		t.Errorf("failed verification must not change status, got %s", txn.Status)
	}
}

func TestVerifyByCustomer_BalancePayment(t *testing.T) {
	runner := uuid.New()
	customer := uuid.New()
	txn, err := models.NewBalancePayment(runner, 300, models.MethodGCash, "", "")
	if err != nil {
		t.Fatalf("NewBalancePayment: %v", err)
	}
	txn.CustomerID = &customer
	if err := VerifyByCustomer(txn, models.Actor{ID: customer, Role: models.RoleCustomer}); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("got %v, want ErrInvalidStateTransition", err)
	}
}

func TestApprove(t *testing.T) {
	now := fixedNow(t)
	admin := models.Actor{ID: uuid.New(), Role: models.RoleAdmin}
	txn := pendingErrandPayment(t, uuid.New(), uuid.New())
	txn.Status = models.TxStatusCustomerVerified

	if err := Approve(txn, &admin); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if txn.Status != models.TxStatusApproved {
		t.Errorf("status: got %s, want approved", txn.Status)
	}
	if txn.ApprovedAt == nil || !txn.ApprovedAt.Equal(now) {
		t.Error("approved_at not set")
	}
	if txn.ApprovedBy == nil || *txn.ApprovedBy != admin.ID {
		t.Error("approved_by not set to admin")
	}
}

func TestApprove_AutoApproval(t *testing.T) {
	fixedNow(t)
	txn := pendingErrandPayment(t, uuid.New(), uuid.New())
	txn.Status = models.TxStatusCustomerVerified

	if err := Approve(txn, nil); err != nil {
		t.Fatalf("Approve(nil): %v", err)
	}
	if txn.ApprovedBy != nil {
		t.Error("auto-approval must leave approved_by empty")
	}
	if txn.ApprovedAt == nil {
		t.Error("approved_at must still be set")
	}
}

func TestApprove_Pending_ErrandPayment(t *testing.T) {
	admin := models.Actor{ID: uuid.New(), Role: models.RoleAdmin}
	txn := pendingErrandPayment(t, uuid.New(), uuid.New())
	// Errand payments require customer verification before approval.
	if err := Approve(txn, &admin); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("got %v, want ErrInvalidStateTransition", err)
	}
}

func TestApprove_NonAdmin(t *testing.T) {
	runner := models.Actor{ID: uuid.New(), Role: models.RoleRunner}
	txn := pendingErrandPayment(t, runner.ID, uuid.New())
	txn.Status = models.TxStatusCustomerVerified
	if err := Approve(txn, &runner); !errors.Is(err, ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}
}

func TestReject(t *testing.T) {
	admin := models.Actor{ID: uuid.New(), Role: models.RoleAdmin}
	txn := pendingErrandPayment(t, uuid.New(), uuid.New())

	if err := Reject(txn, admin, "proof image unreadable"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if txn.Status != models.TxStatusRejected {
		t.Errorf("status: got %s, want rejected", txn.Status)
	}
	if txn.RejectionReason != "proof image unreadable" {
		t.Errorf("rejection_reason: got %q", txn.RejectionReason)
	}
}

func TestReject_RequiresReason(t *testing.T) {
	admin := models.Actor{ID: uuid.New(), Role: models.RoleAdmin}
	txn := pendingErrandPayment(t, uuid.New(), uuid.New())

	err := Reject(txn, admin, "")
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("got %v, want ValidationError", err)
	}
	if txn.Status != models.TxStatusPending {
		t.Errorf("failed rejection must not change status, got %s", txn.Status)
	}
}

func TestCancel(t *testing.T) {
	runnerID := uuid.New()
	txn := pendingErrandPayment(t, runnerID, uuid.New())

	if err := Cancel(txn, models.Actor{ID: runnerID, Role: models.RoleRunner}); err != nil {
		t.Fatalf("Cancel by submitter: %v", err)
	}
	if txn.Status != models.TxStatusCancelled {
		t.Errorf("status: got %s, want cancelled", txn.Status)
	}

	// Another runner cannot cancel.
	txn = pendingErrandPayment(t, runnerID, uuid.New())
	if err := Cancel(txn, models.Actor{ID: uuid.New(), Role: models.RoleRunner}); !errors.Is(err, ErrForbidden) {
		t.Errorf("other runner: got %v, want ErrForbidden", err)
	}

	// Terminal statuses stay terminal.
	txn = pendingErrandPayment(t, runnerID, uuid.New())
	txn.Status = models.TxStatusApproved
	if err := Cancel(txn, models.Actor{ID: uuid.New(), Role: models.RoleAdmin}); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("approved: got %v, want ErrInvalidStateTransition", err)
	}
}
