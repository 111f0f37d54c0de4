package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordPaymentVerified(t *testing.T) {
	autoBefore := testutil.ToFloat64(PaymentsVerifiedTotal.WithLabelValues("true"))
	manualBefore := testutil.ToFloat64(PaymentsVerifiedTotal.WithLabelValues("false"))

	RecordPaymentVerified(true)
	RecordPaymentVerified(false)
	RecordPaymentVerified(false)

	if got := testutil.ToFloat64(PaymentsVerifiedTotal.WithLabelValues("true")) - autoBefore; got != 1 {
		t.Errorf("auto-approved verifications: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(PaymentsVerifiedTotal.WithLabelValues("false")) - manualBefore; got != 2 {
		t.Errorf("manual verifications: got %v, want 2", got)
	}
}

func TestRecordBalanceSweep(t *testing.T) {
	sweepsBefore := testutil.ToFloat64(BalanceSweepsTotal)
	sweptBefore := testutil.ToFloat64(BalancesSweptTotal)

	RecordBalanceSweep(3)

	if got := testutil.ToFloat64(BalanceSweepsTotal) - sweepsBefore; got != 1 {
		t.Errorf("sweep runs: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(BalancesSweptTotal) - sweptBefore; got != 3 {
		t.Errorf("balances swept: got %v, want 3", got)
	}
}
