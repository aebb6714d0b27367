package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"scriptwizard/internal/apperr"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "timeout", outcome(apperr.ErrUpstreamTimeout.WithError(errors.New("deadline"))))
	assert.Equal(t, "bad_response", outcome(apperr.ErrUpstreamShape))
	assert.Equal(t, "invalid", outcome(apperr.ErrValidation.WithDetail("brand")))
	assert.Equal(t, "invalid", outcome(apperr.ErrStepIncomplete))
	assert.Equal(t, "busy", outcome(apperr.ErrBusy))
	assert.Equal(t, "error", outcome(apperr.ErrUpstream))
	assert.Equal(t, "error", outcome(errors.New("plain")))
}

func TestObserve(t *testing.T) {
	before := testutil.ToFloat64(UpstreamCallsTotal.WithLabelValues("test_op", "timeout"))
	ObserveUpstream("test_op", apperr.ErrUpstreamTimeout, 3*time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(UpstreamCallsTotal.WithLabelValues("test_op", "timeout")))

	before = testutil.ToFloat64(WizardOperationsTotal.WithLabelValues("test_op", "ok"))
	ObserveOperation("test_op", nil)
	assert.Equal(t, before+1, testutil.ToFloat64(WizardOperationsTotal.WithLabelValues("test_op", "ok")))
}
