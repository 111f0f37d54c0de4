package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/errandsexpress/backend/internal/auth"
	"github.com/errandsexpress/backend/internal/handlers"
	"github.com/errandsexpress/backend/internal/middleware"
	"github.com/errandsexpress/backend/internal/models"
)

// Deps bundles what the router wires together.
type Deps struct {
	Auth     *auth.Handler
	Tokens   middleware.TokenValidator
	Posts    *handlers.PostHandler
	Payments *handlers.PaymentHandler
	Balances *handlers.BalanceHandler
	Admin    *handlers.AdminHandler
}

// New assembles the full API route table.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	authed := middleware.Auth(d.Tokens)
	customer := func(h http.HandlerFunc) http.Handler {
		return authed(middleware.RequireRole(models.RoleCustomer)(h))
	}
	runner := func(h http.HandlerFunc) http.Handler {
		return authed(middleware.RequireRole(models.RoleRunner)(h))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return authed(middleware.RequireRole(models.RoleAdmin)(h))
	}
	anyRole := func(h http.HandlerFunc) http.Handler {
		return authed(http.HandlerFunc(h))
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Auth
	mux.HandleFunc("POST /api/v1/auth/register", d.Auth.Register)
	mux.HandleFunc("POST /api/v1/auth/login", d.Auth.Login)

	// Post lifecycle
	mux.Handle("POST /api/v1/posts", customer(d.Posts.CreatePost))
	mux.Handle("GET /api/v1/posts", customer(d.Posts.ListMyPosts))
	mux.Handle("GET /api/v1/posts/{id}", anyRole(d.Posts.GetPost))
	mux.Handle("POST /api/v1/posts/{id}/accept", runner(d.Posts.AcceptPost))
	mux.Handle("POST /api/v1/posts/{id}/complete", customer(d.Posts.CompletePost))

	// Payment workflow
	mux.Handle("POST /api/v1/posts/{id}/payment", runner(d.Payments.SubmitErrandPayment))
	mux.Handle("PATCH /api/v1/posts/{id}/verify-payment", customer(d.Payments.VerifyPayment))
	mux.Handle("GET /api/v1/posts/{id}/transactions", anyRole(d.Payments.ListPostTransactions))
	mux.Handle("POST /api/v1/transactions/{id}/cancel", anyRole(d.Payments.CancelPayment))

	// Runner balance
	mux.Handle("GET /api/v1/balance", runner(d.Balances.GetBalance))
	mux.Handle("GET /api/v1/balance/transactions", runner(d.Balances.ListBalanceTransactions))
	mux.Handle("GET /api/v1/balance/entries", runner(d.Balances.ListBalanceEntries))
	mux.Handle("POST /api/v1/balance/pay", runner(d.Balances.SubmitBalancePayment))

	// Admin review queues, pinned per transaction type
	mux.Handle("GET /api/v1/admin/errand-payments/pending",
		admin(d.Admin.ListPending(models.TxTypeErrandPayment)))
	mux.Handle("PATCH /api/v1/admin/errand-payments/{id}/approve",
		admin(d.Admin.ApprovePayment(models.TxTypeErrandPayment)))
	mux.Handle("PATCH /api/v1/admin/errand-payments/{id}/reject",
		admin(d.Admin.RejectPayment(models.TxTypeErrandPayment)))
	mux.Handle("GET /api/v1/admin/balances/pending-payments",
		admin(d.Admin.ListPending(models.TxTypeBalancePayment)))
	mux.Handle("PATCH /api/v1/admin/balances/payment/{id}/approve",
		admin(d.Admin.ApprovePayment(models.TxTypeBalancePayment)))
	mux.Handle("PATCH /api/v1/admin/balances/payment/{id}/reject",
		admin(d.Admin.RejectPayment(models.TxTypeBalancePayment)))

	return mux
}
