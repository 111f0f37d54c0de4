package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errands_payments_submitted_total",
			Help: "Total number of payment transactions submitted",
		},
		[]string{"type", "payment_method"},
	)

	PaymentsVerifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errands_payments_verified_total",
			Help: "Total number of errand payments verified by the customer",
		},
		[]string{"auto_approved"},
	)

	PaymentsApprovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errands_payments_approved_total",
			Help: "Total number of payment transactions approved",
		},
		[]string{"type"},
	)

	PaymentsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errands_payments_rejected_total",
			Help: "Total number of payment transactions rejected",
		},
		[]string{"type"},
	)

	BalanceSweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "errands_balance_sweeps_total",
			Help: "Total number of balance status sweep runs",
		},
	)

	BalancesSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "errands_balances_swept_total",
			Help: "Total number of runner balances whose status changed in a sweep",
		},
	)
)

func RecordPaymentSubmitted(txType, method string) {
	PaymentsSubmittedTotal.WithLabelValues(txType, method).Inc()
}

func RecordPaymentVerified(autoApproved bool) {
	PaymentsVerifiedTotal.WithLabelValues(strconv.FormatBool(autoApproved)).Inc()
}

func RecordPaymentApproved(txType string) {
	PaymentsApprovedTotal.WithLabelValues(txType).Inc()
}

func RecordPaymentRejected(txType string) {
	PaymentsRejectedTotal.WithLabelValues(txType).Inc()
}

func RecordBalanceSweep(changed int) {
	BalanceSweepsTotal.Inc()
	BalancesSweptTotal.Add(float64(changed))
}
