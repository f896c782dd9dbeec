package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"slopefs/db"
	"slopefs/ml"
	"slopefs/monitoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeScaler struct {
	calls int
}

func (f *fakeScaler) Transform(fv ml.FeatureVector) ([]float64, error) {
	f.calls++
	return fv.Slice(), nil
}

type fakeModel struct {
	fs    float64
	err   error
	calls int
}

func (f *fakeModel) Predict(features []float64) (float64, error) {
	f.calls++
	return f.fs, f.err
}

type fakeStore struct {
	mu      sync.Mutex
	records []db.PredictionRecord
}

func (f *fakeStore) Record(ctx context.Context, requestID string, res ml.Result) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, db.PredictionRecord{
		ID:         int64(len(f.records) + 1),
		RequestID:  requestID,
		Features:   res.Features.Named(),
		FS:         res.FS,
		Conclusion: res.Conclusion,
	})
	return int64(len(f.records)), nil
}

func (f *fakeStore) Recent(ctx context.Context, limit int) ([]db.PredictionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]db.PredictionRecord, 0, limit)
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.records[i])
	}
	return out, nil
}

func (f *fakeStore) Counts(ctx context.Context) (map[ml.Classification]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[ml.Classification]int)
	for _, r := range f.records {
		counts[r.Conclusion]++
	}
	return counts, nil
}

type fakeFeed struct {
	published []ml.Result
}

func (f *fakeFeed) PublishPrediction(requestID string, res ml.Result) error {
	f.published = append(f.published, res)
	return nil
}

func (f *fakeFeed) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
}

func newTestRouter(predictor *ml.Predictor, deps Deps) http.Handler {
	mux := http.NewServeMux()
	NewHandler(predictor, deps).Register(mux)
	return NewRouter(DefaultServerConfig(), mux, zap.NewNop())
}

func postPredict(t *testing.T, router http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload), "body: %s", w.Body.String())
	return w, payload
}

func TestHandlePredictDocumentedExample(t *testing.T) {
	store, feed := &fakeStore{}, &fakeFeed{}
	predictor := ml.NewPredictor(&fakeScaler{}, &fakeModel{fs: 1.23456})
	router := newTestRouter(predictor, Deps{Store: store, Feed: feed})

	w, payload := postPredict(t, router, `{"features": [10, 40, 50, 60, 30, 10, 35]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, 1.235, payload["FS"])
	assert.Contains(t, []any{"Safe", "NeedsReview", "Dangerous"}, payload["Conclusion"])
	assert.Equal(t, "NeedsReview", payload["Conclusion"])
	assert.Len(t, payload, 2, "only FS and Conclusion are returned")

	require.Len(t, store.records, 1)
	assert.Equal(t, w.Header().Get("X-Request-ID"), store.records[0].RequestID)
	require.Len(t, feed.published, 1)
	assert.Equal(t, ml.FeatureVector{10, 40, 50, 60, 30, 10, 35}, feed.published[0].Features)
}

func TestHandlePredictBadInput(t *testing.T) {
	bodies := map[string]string{
		"not json":        `{"features": [1, 2`,
		"not an object":   `[10, 40, 50, 60, 30, 10, 35]`,
		"missing field":   `{"values": [10, 40, 50, 60, 30, 10, 35]}`,
		"null features":   `{"features": null}`,
		"features string": `{"features": "10,40,50,60,30,10,35"}`,
		"wrong length":    `{"features": [10, 40, 50]}`,
		"non numeric":     `{"features": [10, 40, "abc", 60, 30, 10, 35]}`,
		"empty body":      ``,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			scaler, model := &fakeScaler{}, &fakeModel{fs: 2}
			router := newTestRouter(ml.NewPredictor(scaler, model), Deps{})

			w, payload := postPredict(t, router, body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, payload["error"])
			assert.Equal(t, "validate", payload["stage"])
			assert.Zero(t, scaler.calls, "scaler must not run")
			assert.Zero(t, model.calls, "model must not run")
		})
	}
}

func TestHandlePredictArtifactsMissing(t *testing.T) {
	dir := t.TempDir()
	predictor, err := ml.LoadPredictor(ml.ArtifactConfig{
		ModelType:  ml.ModelDense,
		ModelPath:  dir + "/model.json",
		ScalerPath: dir + "/scaler.json",
	})
	require.Error(t, err)
	router := newTestRouter(predictor, Deps{})

	w, payload := postPredict(t, router, `{"features": [10, 40, 50, 60, 30, 10, 35]}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, payload["error"], "scaler")
	assert.Equal(t, "scale", payload["stage"])

	w, _ = postPredict(t, router, `{"features": [10]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "validation still runs first")
}

func TestHandlePredictModelFailure(t *testing.T) {
	predictor := ml.NewPredictor(&fakeScaler{}, &fakeModel{err: assert.AnError})
	router := newTestRouter(predictor, Deps{})

	w, payload := postPredict(t, router, `{"features": [10, 40, 50, 60, 30, 10, 35]}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "predict", payload["stage"])
	assert.Contains(t, payload["error"], "prediction failed")
}

func TestHandlePredictBodyTooLarge(t *testing.T) {
	mux := http.NewServeMux()
	NewHandler(ml.NewPredictor(&fakeScaler{}, &fakeModel{fs: 2}), Deps{}).Register(mux)
	cfg := DefaultServerConfig()
	cfg.MaxBodyBytes = 16
	router := NewRouter(cfg, mux, zap.NewNop())

	w, payload := postPredict(t, router, `{"features": [10, 40, 50, 60, 30, 10, 35]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "request body too large", payload["error"])
	assert.Equal(t, "validate", payload["stage"])
}

func TestHandlePredictions(t *testing.T) {
	store := &fakeStore{}
	router := newTestRouter(ml.NewPredictor(&fakeScaler{}, &fakeModel{fs: 0.5}), Deps{Store: store})
	for i := 0; i < 3; i++ {
		w, _ := postPredict(t, router, `{"features": [10, 40, 50, 60, 30, 10, 35]}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/predictions?limit=2", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Data []db.PredictionRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Len(t, payload.Data, 2)
	assert.Equal(t, ml.Dangerous, payload.Data[0].Conclusion)

	req = httptest.NewRequest(http.MethodGet, "/api/predictions?limit=abc", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePredictionsDisabled(t *testing.T) {
	router := newTestRouter(ml.NewPredictor(&fakeScaler{}, &fakeModel{}), Deps{})
	req := httptest.NewRequest(http.MethodGet, "/api/predictions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleMetrics(t *testing.T) {
	metrics := monitoring.NewCollector()
	router := newTestRouter(ml.NewPredictor(&fakeScaler{}, &fakeModel{fs: 2}), Deps{Metrics: metrics})

	postPredict(t, router, `{"features": [10, 40, 50, 60, 30, 10, 35]}`)
	postPredict(t, router, `{"features": [10, 40]}`)

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var snap monitoring.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.Predictions)
	assert.Equal(t, int64(1), snap.ByConclusion[ml.Safe])
	require.Len(t, snap.Failures, 1)
	assert.Equal(t, ml.KindInvalidInput, snap.Failures[0].Kind)
	assert.Equal(t, ml.StageValidate, snap.Failures[0].Stage)

	req = httptest.NewRequest(http.MethodGet, "/api/metrics?format=prometheus", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `slopefs_conclusions_total{conclusion="Safe"} 1`)
}

func TestMetricsRouteAbsentWithoutCollector(t *testing.T) {
	router := newTestRouter(ml.NewPredictor(&fakeScaler{}, &fakeModel{}), Deps{})
	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleMetricsIncludesStoredTotals(t *testing.T) {
	store := &fakeStore{}
	router := newTestRouter(ml.NewPredictor(&fakeScaler{}, &fakeModel{fs: 1.2}),
		Deps{Store: store, Metrics: monitoring.NewCollector()})
	for i := 0; i < 2; i++ {
		w, _ := postPredict(t, router, `{"features": [10, 40, 50, 60, 30, 10, 35]}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Predictions int64                     `json:"predictions"`
		History     map[ml.Classification]int `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, int64(2), payload.Predictions)
	assert.Equal(t, map[ml.Classification]int{ml.Safe: 0, ml.NeedsReview: 2, ml.Dangerous: 0}, payload.History)
}

func TestHandlePredictRoundsLikePrintf(t *testing.T) {
	tests := []struct {
		fs         float64
		body       string
		conclusion string
	}{
		{fs: 1.0005, body: `"FS":1,`, conclusion: "NeedsReview"},
		{fs: 1.2345, body: `"FS":1.234,`, conclusion: "NeedsReview"},
		{fs: -0.0001, body: `"FS":0,`, conclusion: "Dangerous"},
	}
	for _, tt := range tests {
		router := newTestRouter(ml.NewPredictor(&fakeScaler{}, &fakeModel{fs: tt.fs}), Deps{})
		w, payload := postPredict(t, router, `{"features": [10, 40, 50, 60, 30, 10, 35]}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), tt.body, "fs=%v", tt.fs)
		assert.Equal(t, tt.conclusion, payload["Conclusion"])
	}
}
