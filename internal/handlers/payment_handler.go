package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/errandsexpress/backend/internal/metrics"
	"github.com/errandsexpress/backend/internal/middleware"
	"github.com/errandsexpress/backend/internal/models"
	"github.com/errandsexpress/backend/internal/services"
)

// PaymentHandler exposes the payment workflow: errand payment submission,
// customer verification, and cancellation.
type PaymentHandler struct {
	workflow *services.Workflow
	txns     TransactionLister
	log      *slog.Logger
}

// TransactionLister is the read side the payment endpoints need.
type TransactionLister interface {
	ListByPostID(ctx context.Context, postID uuid.UUID) ([]*models.BalanceTransaction, error)
}

func NewPaymentHandler(workflow *services.Workflow, txns TransactionLister, log *slog.Logger) *PaymentHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PaymentHandler{workflow: workflow, txns: txns, log: log}
}

type submitPaymentRequest struct {
	OriginalAmount int64  `json:"original_amount" validate:"required,min=1,max=50000"`
	ServiceFee     int64  `json:"service_fee" validate:"min=0"`
	PaymentMethod  string `json:"payment_method" validate:"required,oneof=gcash cod bank_transfer online"`
	ProofImage     string `json:"proof_image"`
	Notes          string `json:"notes" validate:"max=500"`
}

// SubmitErrandPayment handles POST /api/v1/posts/{id}/payment.
func (h *PaymentHandler) SubmitErrandPayment(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	postID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeErrMsg(w, http.StatusBadRequest, "invalid post id")
		return
	}

	var req submitPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrMsg(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if verr := validateStruct(req); verr != nil {
		writeErr(w, h.log, verr)
		return
	}

	txn, err := h.workflow.SubmitErrandPayment(r.Context(), *actor, postID, services.SubmitPaymentInput{
		OriginalAmount: req.OriginalAmount,
		ServiceFee:     req.ServiceFee,
		PaymentMethod:  models.PaymentMethod(req.PaymentMethod),
		ProofImage:     req.ProofImage,
		Notes:          req.Notes,
	})
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	metrics.RecordPaymentSubmitted(string(txn.Type), string(txn.PaymentMethod))
	h.log.Info("errand payment submitted", "transaction_id", txn.ID, "post_id", postID, "runner_id", actor.ID)
	writeJSON(w, http.StatusCreated, txn)
}

// VerifyPayment handles PATCH /api/v1/posts/{id}/verify-payment. Only the
// post's customer may verify; with auto-approval on this also settles.
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	postID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeErrMsg(w, http.StatusBadRequest, "invalid post id")
		return
	}

	txn, err := h.workflow.VerifyErrandPayment(r.Context(), *actor, postID)
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	autoApproved := txn.Status == models.TxStatusApproved
	metrics.RecordPaymentVerified(autoApproved)
	if autoApproved {
		metrics.RecordPaymentApproved(string(txn.Type))
	}
	h.log.Info("payment verified", "transaction_id", txn.ID, "status", txn.Status)
	writeJSON(w, http.StatusOK, txn)
}

// CancelPayment handles POST /api/v1/transactions/{id}/cancel.
func (h *PaymentHandler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	txnID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeErrMsg(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	txn, err := h.workflow.CancelPayment(r.Context(), *actor, txnID)
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	h.log.Info("payment cancelled", "transaction_id", txn.ID, "by", actor.ID)
	writeJSON(w, http.StatusOK, txn)
}

// ListPostTransactions handles GET /api/v1/posts/{id}/transactions.
func (h *PaymentHandler) ListPostTransactions(w http.ResponseWriter, r *http.Request) {
	postID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeErrMsg(w, http.StatusBadRequest, "invalid post id")
		return
	}
	list, err := h.txns.ListByPostID(r.Context(), postID)
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	if list == nil {
		list = []*models.BalanceTransaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": list})
}
