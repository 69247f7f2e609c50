package metrics

import (
	"errors"
	"testing"

	"Gin_postgres_redis_equipment_tool/lifecycle"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserve(t *testing.T) {
	before := testutil.ToFloat64(Transitions.WithLabelValues("loan", "issue"))
	Observe("loan", "issue", nil)
	if got := testutil.ToFloat64(Transitions.WithLabelValues("loan", "issue")); got != before+1 {
		t.Errorf("transitions = %v, want %v", got, before+1)
	}

	biz := testutil.ToFloat64(DomainErrors.WithLabelValues("business"))
	Observe("loan", "issue", lifecycle.Businessf("nope"))
	Observe("loan", "issue", errors.New("db down"))
	if got := testutil.ToFloat64(DomainErrors.WithLabelValues("business")); got != biz+1 {
		t.Errorf("business errors = %v, want %v", got, biz+1)
	}
}
