package monitoring

import (
	"strings"
	"testing"
	"time"

	"slopefs/ml"

	"github.com/stretchr/testify/assert"
)

func TestCollectorSnapshot(t *testing.T) {
	c := NewCollector()
	c.RecordPrediction(ml.Result{FS: 2, Conclusion: ml.Safe}, 2*time.Millisecond)
	c.RecordPrediction(ml.Result{FS: 2, Conclusion: ml.Safe, Cached: true}, 4*time.Millisecond)
	c.RecordPrediction(ml.Result{FS: 0.5, Conclusion: ml.Dangerous}, 6*time.Millisecond)
	c.RecordFailure(ml.KindInvalidInput, ml.StageValidate, 0)
	c.RecordFailure(ml.KindInvalidInput, ml.StageValidate, 0)
	c.RecordFailure(ml.KindModelUnavailable, ml.StagePredict, 0)

	snap := c.Snapshot()
	assert.Equal(t, int64(3), snap.Predictions)
	assert.Equal(t, int64(1), snap.CacheHits)
	assert.Equal(t, int64(2), snap.ByConclusion[ml.Safe])
	assert.Equal(t, int64(0), snap.ByConclusion[ml.NeedsReview])
	assert.Equal(t, int64(1), snap.ByConclusion[ml.Dangerous])
	assert.Equal(t, []FailureCount{
		{Kind: ml.KindInvalidInput, Stage: ml.StageValidate, Count: 2},
		{Kind: ml.KindModelUnavailable, Stage: ml.StagePredict, Count: 1},
	}, snap.Failures)
	assert.Equal(t, int64(6), snap.Latency.Count)
	assert.InDelta(t, 2.0, snap.Latency.AvgMs, 1e-9)
	assert.Equal(t, 0.0, snap.Latency.MinMs)
	assert.Equal(t, 6.0, snap.Latency.MaxMs)
	assert.Greater(t, snap.System.Goroutines, 0)
}

func TestExportPrometheus(t *testing.T) {
	c := NewCollector()
	c.RecordPrediction(ml.Result{FS: 1.2, Conclusion: ml.NeedsReview}, time.Millisecond)
	c.RecordFailure(ml.KindScalingUnavailable, ml.StageScale, 0)

	out := c.Snapshot().ExportPrometheus()
	assert.Contains(t, out, "# TYPE slopefs_predictions_total counter\nslopefs_predictions_total 1\n")
	assert.Contains(t, out, `slopefs_conclusions_total{conclusion="NeedsReview"} 1`)
	assert.Contains(t, out, `slopefs_prediction_failures_total{kind="ScalingUnavailable",stage="scale"} 1`)
	assert.Equal(t, 1, strings.Count(out, "# HELP slopefs_conclusions_total"))
}
