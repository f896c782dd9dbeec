package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"slopefs/db"
	"slopefs/ml"
	"slopefs/monitoring"

	"go.uber.org/zap"
)

const livenessMessage = "API FS Model is running!"

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// PredictionStore persists served predictions.
type PredictionStore interface {
	Record(ctx context.Context, requestID string, res ml.Result) (int64, error)
	Recent(ctx context.Context, limit int) ([]db.PredictionRecord, error)
	Counts(ctx context.Context) (map[ml.Classification]int, error)
}

// PredictionFeed receives every served prediction.
type PredictionFeed interface {
	PublishPrediction(requestID string, res ml.Result) error
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
}

// PredictionMetrics aggregates outcomes for /api/metrics.
type PredictionMetrics interface {
	RecordPrediction(res ml.Result, elapsed time.Duration)
	RecordFailure(kind ml.ErrorKind, stage ml.Stage, elapsed time.Duration)
	Snapshot() monitoring.Snapshot
}

// Handler serves the prediction API from an explicit application context.
type Handler struct {
	predictor *ml.Predictor
	store     PredictionStore
	feed      PredictionFeed
	metrics   PredictionMetrics
	logger    *zap.Logger
}

// Deps are the optional collaborators of a Handler.
type Deps struct {
	Store   PredictionStore
	Feed    PredictionFeed
	Metrics PredictionMetrics
	Logger  *zap.Logger
}

func NewHandler(predictor *ml.Predictor, deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		predictor: predictor,
		store:     deps.Store,
		feed:      deps.Feed,
		metrics:   deps.Metrics,
		logger:    logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleRoot)
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/predictions", h.handlePredictions)
	if h.feed != nil {
		mux.HandleFunc("GET /ws/predictions", h.feed.HandleWebSocket)
	}
	if h.metrics != nil {
		mux.HandleFunc("GET /api/metrics", h.handleMetrics)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string, stage ml.Stage) {
	writeJSON(w, status, errorResponse{Error: msg, Stage: string(stage)})
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": livenessMessage})
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	start := time.Now()

	features, err := decodePredictRequest(r.Body)
	if err != nil {
		h.recordFailure(ml.KindInvalidInput, ml.StageValidate, start)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", ml.StageValidate)
			return
		}
		h.logger.Debug("rejected request body", zap.String("request_id", requestID), zap.Error(errors.Unwrap(err)))
		writeError(w, http.StatusBadRequest, err.Error(), ml.StageValidate)
		return
	}

	res, err := h.predictor.EvaluateValues(r.Context(), features)
	if err != nil {
		h.recordFailure(ml.KindOf(err), ml.StageOf(err), start)
		status := statusForKind(ml.KindOf(err))
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("kind", string(ml.KindOf(err))),
			zap.String("stage", string(ml.StageOf(err))),
			zap.Error(err),
		}
		if status >= http.StatusInternalServerError {
			h.logger.Error("prediction failed", fields...)
		} else {
			h.logger.Info("prediction rejected", fields...)
		}
		writeError(w, status, err.Error(), ml.StageOf(err))
		return
	}

	if h.metrics != nil {
		h.metrics.RecordPrediction(res, time.Since(start))
	}
	h.publish(r.Context(), requestID, res)
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) recordFailure(kind ml.ErrorKind, stage ml.Stage, start time.Time) {
	if h.metrics != nil {
		h.metrics.RecordFailure(kind, stage, time.Since(start))
	}
}

// publish hands the result to the audit store and live feed. Their
// failures are logged and never change the response.
func (h *Handler) publish(ctx context.Context, requestID string, res ml.Result) {
	if h.store != nil {
		if _, err := h.store.Record(ctx, requestID, res); err != nil {
			h.logger.Warn("failed to record prediction", zap.String("request_id", requestID), zap.Error(err))
		}
	}
	if h.feed != nil {
		if err := h.feed.PublishPrediction(requestID, res); err != nil {
			h.logger.Warn("failed to publish prediction", zap.String("request_id", requestID), zap.Error(err))
		}
	}
}

func statusForKind(kind ml.ErrorKind) int {
	switch kind {
	case ml.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Model  ml.ArtifactStatus `json:"model"`
	Scaler ml.ArtifactStatus `json:"scaler"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	model, scaler := h.predictor.Status()
	resp := healthResponse{Status: "ok", Model: model, Scaler: scaler}
	status := http.StatusOK
	if h.predictor.Ready() != nil {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *Handler) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "prediction history is disabled", "")
		return
	}

	limit := defaultHistoryLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", "")
			return
		}
		limit = min(l, maxHistoryLimit)
	}

	records, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to load predictions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load prediction history", "")
		return
	}
	if records == nil {
		records = []db.PredictionRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": records})
}

// metricsResponse adds the all-time totals from the audit store to the
// in-process counters, which reset on restart.
type metricsResponse struct {
	monitoring.Snapshot
	History map[ml.Classification]int `json:"history,omitempty"`
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap := h.metrics.Snapshot()
	if r.URL.Query().Get("format") == "prometheus" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, snap.ExportPrometheus())
		return
	}

	resp := metricsResponse{Snapshot: snap}
	if h.store != nil {
		counts, err := h.store.Counts(r.Context())
		if err != nil {
			h.logger.Warn("failed to count stored predictions", zap.Error(err))
		} else {
			resp.History = make(map[ml.Classification]int, len(ml.Classifications()))
			for _, class := range ml.Classifications() {
				resp.History[class] = counts[class]
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
