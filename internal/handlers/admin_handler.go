package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/errandsexpress/backend/internal/metrics"
	"github.com/errandsexpress/backend/internal/middleware"
	"github.com/errandsexpress/backend/internal/models"
	"github.com/errandsexpress/backend/internal/services"
)

// PendingQueueLister returns the admin review queue per transaction type.
type PendingQueueLister interface {
	ListPendingByType(ctx context.Context, txType models.TransactionType) ([]*models.BalanceTransaction, error)
}

// AdminHandler exposes the manual approval side of the payment workflow. Each
// admin route is pinned to one transaction type.
type AdminHandler struct {
	workflow *services.Workflow
	txns     PendingQueueLister
	log      *slog.Logger
}

func NewAdminHandler(workflow *services.Workflow, txns PendingQueueLister, log *slog.Logger) *AdminHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AdminHandler{workflow: workflow, txns: txns, log: log}
}

type approveRequest struct {
	Confirmed *bool  `json:"confirmed"`
	Notes     string `json:"notes" validate:"max=500"`
}

// ApprovePayment handles PATCH /api/v1/admin/errand-payments/{id}/approve and
// PATCH /api/v1/admin/balances/payment/{id}/approve.
func (h *AdminHandler) ApprovePayment(txType models.TransactionType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromCtx(r.Context())
		txnID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeErrMsg(w, http.StatusBadRequest, "invalid transaction id")
			return
		}

		// The body is optional; confirmed and notes only refine the approval.
		var req approveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeErrMsg(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if req.Confirmed != nil && !*req.Confirmed {
			writeErrMsg(w, http.StatusBadRequest, "approval must be confirmed")
			return
		}
		if verr := validateStruct(req); verr != nil {
			writeErr(w, h.log, verr)
			return
		}

		txn, err := h.workflow.ApprovePayment(r.Context(), *actor, txnID, txType, req.Notes)
		if err != nil {
			writeErr(w, h.log, err)
			return
		}
		metrics.RecordPaymentApproved(string(txn.Type))
		h.log.Info("payment approved", "transaction_id", txn.ID, "type", txn.Type, "admin_id", actor.ID)
		writeJSON(w, http.StatusOK, txn)
	}
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// RejectPayment handles PATCH /api/v1/admin/errand-payments/{id}/reject and
// PATCH /api/v1/admin/balances/payment/{id}/reject.
func (h *AdminHandler) RejectPayment(txType models.TransactionType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromCtx(r.Context())
		txnID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeErrMsg(w, http.StatusBadRequest, "invalid transaction id")
			return
		}

		var req rejectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrMsg(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if verr := validateStruct(req); verr != nil {
			writeErr(w, h.log, verr)
			return
		}

		txn, err := h.workflow.RejectPayment(r.Context(), *actor, txnID, txType, req.Reason)
		if err != nil {
			writeErr(w, h.log, err)
			return
		}
		metrics.RecordPaymentRejected(string(txn.Type))
		h.log.Info("payment rejected", "transaction_id", txn.ID, "type", txn.Type, "admin_id", actor.ID)
		writeJSON(w, http.StatusOK, txn)
	}
}

// ListPending handles the admin review queues, oldest first.
func (h *AdminHandler) ListPending(txType models.TransactionType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := h.txns.ListPendingByType(r.Context(), txType)
		if err != nil {
			writeErr(w, h.log, err)
			return
		}
		if list == nil {
			list = []*models.BalanceTransaction{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"transactions": list})
	}
}
