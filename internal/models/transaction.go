package models

import (
	"time"

	"github.com/google/uuid"
)

// Amount bounds for a single payment, in whole currency units.
const (
	MinAmount int64 = 1
	MaxAmount int64 = 50000
)

// TransactionType distinguishes what a ledger transaction settles.
type TransactionType string

const (
	TxTypeErrandPayment  TransactionType = "errand_payment"
	TxTypeBalancePayment TransactionType = "balance_payment"
	TxTypeRefund         TransactionType = "refund"
	TxTypeAdjustment     TransactionType = "adjustment"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxTypeErrandPayment, TxTypeBalancePayment, TxTypeRefund, TxTypeAdjustment:
		return true
	}
	return false
}

// TransactionStatus is the settlement state of a transaction.
type TransactionStatus string

const (
	TxStatusPending          TransactionStatus = "pending"
	TxStatusCustomerVerified TransactionStatus = "customer_verified"
	TxStatusApproved         TransactionStatus = "approved"
	TxStatusRejected         TransactionStatus = "rejected"
	TxStatusCancelled        TransactionStatus = "cancelled"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TxStatusPending, TxStatusCustomerVerified, TxStatusApproved, TxStatusRejected, TxStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions may leave s.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case TxStatusApproved, TxStatusRejected, TxStatusCancelled:
		return true
	}
	return false
}

// Resolved reports whether the transaction no longer counts as outstanding.
func (s TransactionStatus) Resolved() bool { return s.Terminal() }

type PaymentMethod string

const (
	MethodGCash        PaymentMethod = "gcash"
	MethodCOD          PaymentMethod = "cod"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodOnline       PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodGCash, MethodCOD, MethodBankTransfer, MethodOnline:
		return true
	}
	return false
}

// BalanceTransaction is a single payment or settlement record. Rows are never
// physically deleted; rejection and cancellation are terminal statuses kept
// for audit.
type BalanceTransaction struct {
	ID                 uuid.UUID         `json:"id"`
	RunnerID           uuid.UUID         `json:"runner_id"`
	CustomerID         *uuid.UUID        `json:"customer_id,omitempty"`
	PostID             *uuid.UUID        `json:"post_id,omitempty"`
	MessageID          *uuid.UUID        `json:"message_id,omitempty"`
	OriginalAmount     int64             `json:"original_amount"`
	ServiceFee         int64             `json:"service_fee"`
	PlatformCommission int64             `json:"platform_commission"`
	TotalAmount        int64             `json:"total_amount"`
	Type               TransactionType   `json:"type"`
	Status             TransactionStatus `json:"status"`
	PaymentMethod      PaymentMethod     `json:"payment_method"`
	ProofImage         string            `json:"proof_image,omitempty"`
	PaymentVerified    bool              `json:"payment_verified"`
	PaymentVerifiedAt  *time.Time        `json:"payment_verified_at,omitempty"`
	ApprovedAt         *time.Time        `json:"approved_at,omitempty"`
	ApprovedBy         *uuid.UUID        `json:"approved_by,omitempty"`
	Notes              string            `json:"notes,omitempty"`
	RejectionReason    string            `json:"rejection_reason,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// RunnerNet is the runner's cut of an errand payment.
func (t *BalanceTransaction) RunnerNet() int64 {
	return t.ServiceFee - t.PlatformCommission
}

// NewErrandPayment builds a pending errand_payment transaction.
// total_amount = original_amount + service_fee and is immutable after this.
func NewErrandPayment(runnerID, customerID, postID uuid.UUID, originalAmount, serviceFee, commission int64, method PaymentMethod, proofImage, notes string) (*BalanceTransaction, error) {
	if err := validateAmounts(originalAmount, serviceFee, commission, method); err != nil {
		return nil, err
	}
	return &BalanceTransaction{
		ID:                 uuid.New(),
		RunnerID:           runnerID,
		CustomerID:         &customerID,
		PostID:             &postID,
		OriginalAmount:     originalAmount,
		ServiceFee:         serviceFee,
		PlatformCommission: commission,
		TotalAmount:        originalAmount + serviceFee,
		Type:               TxTypeErrandPayment,
		Status:             TxStatusPending,
		PaymentMethod:      method,
		ProofImage:         proofImage,
		Notes:              notes,
	}, nil
}

// NewBalancePayment builds a pending balance_payment (commission settlement)
// transaction. The whole amount is the settlement; there is no service fee.
func NewBalancePayment(runnerID uuid.UUID, amount int64, method PaymentMethod, proofImage, notes string) (*BalanceTransaction, error) {
	if err := validateAmounts(amount, 0, 0, method); err != nil {
		return nil, err
	}
	return &BalanceTransaction{
		ID:             uuid.New(),
		RunnerID:       runnerID,
		OriginalAmount: amount,
		TotalAmount:    amount,
		Type:           TxTypeBalancePayment,
		Status:         TxStatusPending,
		PaymentMethod:  method,
		ProofImage:     proofImage,
		Notes:          notes,
	}, nil
}

func validateAmounts(originalAmount, serviceFee, commission int64, method PaymentMethod) error {
	v := NewValidationError()
	if originalAmount < MinAmount || originalAmount > MaxAmount {
		v.Add("original_amount", "must be between 1 and 50000")
	}
	if serviceFee < 0 {
		v.Add("service_fee", "must not be negative")
	}
	if commission < 0 || commission > serviceFee {
		v.Add("platform_commission", "must be between 0 and the service fee")
	}
	if !method.Valid() {
		v.Add("payment_method", "must be one of gcash, cod, bank_transfer, online")
	}
	return v.OrNil()
}
