package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveStageCountsOutcomes(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())

	m.ObserveStage("complete", nil, 10*time.Millisecond)
	m.ObserveStage("complete", nil, 20*time.Millisecond)
	m.ObserveStage("complete", errors.New("down"), 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StageRuns.WithLabelValues("complete", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageRuns.WithLabelValues("complete", "failure")))
}
