package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/errandsexpress/backend/internal/metrics"
	"github.com/errandsexpress/backend/internal/middleware"
	"github.com/errandsexpress/backend/internal/models"
	"github.com/errandsexpress/backend/internal/services"
)

// BalanceReader is the read side the balance endpoints need.
type BalanceReader interface {
	GetByRunnerID(ctx context.Context, runnerID uuid.UUID) (*models.RunnerBalance, error)
}

// RunnerTransactionLister lists a runner's transaction history.
type RunnerTransactionLister interface {
	ListByRunnerID(ctx context.Context, runnerID uuid.UUID) ([]*models.BalanceTransaction, error)
}

// EntryLister lists a runner's applied ledger entries.
type EntryLister interface {
	ListByRunnerID(ctx context.Context, runnerID uuid.UUID) ([]*models.BalanceEntry, error)
}

// BalanceHandler exposes a runner's balance view and the balance payment
// (commission settlement) workflow.
type BalanceHandler struct {
	workflow *services.Workflow
	balances BalanceReader
	txns     RunnerTransactionLister
	entries  EntryLister
	log      *slog.Logger
}

func NewBalanceHandler(workflow *services.Workflow, balances BalanceReader, txns RunnerTransactionLister, entries EntryLister, log *slog.Logger) *BalanceHandler {
	if log == nil {
		log = slog.Default()
	}
	return &BalanceHandler{workflow: workflow, balances: balances, txns: txns, entries: entries, log: log}
}

// GetBalance handles GET /api/v1/balance. Runners without a balance row yet
// get a zeroed view, not a 404.
func (h *BalanceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	bal, err := h.balances.GetByRunnerID(r.Context(), actor.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusOK, models.NewRunnerBalance(actor.ID, timeNow()))
			return
		}
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

// ListBalanceTransactions handles GET /api/v1/balance/transactions.
func (h *BalanceHandler) ListBalanceTransactions(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	list, err := h.txns.ListByRunnerID(r.Context(), actor.ID)
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	if list == nil {
		list = []*models.BalanceTransaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": list})
}

// ListBalanceEntries handles GET /api/v1/balance/entries.
func (h *BalanceHandler) ListBalanceEntries(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	list, err := h.entries.ListByRunnerID(r.Context(), actor.ID)
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	if list == nil {
		list = []*models.BalanceEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": list})
}

type submitBalancePaymentRequest struct {
	Amount        int64  `json:"amount" validate:"required,min=1,max=50000"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=gcash cod bank_transfer online"`
	ProofImage    string `json:"proof_image"`
	Notes         string `json:"notes" validate:"max=500"`
}

// SubmitBalancePayment handles POST /api/v1/balance/pay.
func (h *BalanceHandler) SubmitBalancePayment(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())

	var req submitBalancePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrMsg(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if verr := validateStruct(req); verr != nil {
		writeErr(w, h.log, verr)
		return
	}

	txn, err := h.workflow.SubmitBalancePayment(r.Context(), *actor, services.SubmitBalanceInput{
		Amount:        req.Amount,
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		ProofImage:    req.ProofImage,
		Notes:         req.Notes,
	})
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	metrics.RecordPaymentSubmitted(string(txn.Type), string(txn.PaymentMethod))
	h.log.Info("balance payment submitted", "transaction_id", txn.ID, "runner_id", actor.ID, "amount", txn.TotalAmount)
	writeJSON(w, http.StatusCreated, txn)
}
