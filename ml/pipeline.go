package ml

import (
	"context"
	"errors"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// ArtifactConfig locates the exported model and scaler.
type ArtifactConfig struct {
	ModelType  string
	ModelPath  string
	ScalerPath string
	CacheSize  int
}

// Result is the outcome of a successful evaluation.
type Result struct {
	FS         float64        `json:"FS"`
	Conclusion Classification `json:"Conclusion"`

	Features FeatureVector `json:"-"`
	Raw      float64       `json:"-"`
	Cached   bool          `json:"-"`
}

// Predictor holds the artifacts loaded at startup. A Predictor whose
// artifacts failed to load still answers every call, with an
// unavailability error, until the process is restarted.
type Predictor struct {
	scaler    Scaler
	scalerErr error
	model     Regressor
	modelErr  error

	modelPath  string
	scalerPath string

	cache  *lru.Cache[FeatureVector, float64]
	logger *zap.Logger
}

type Option func(*Predictor)

// WithCache memoises predictions for up to size distinct vectors.
func WithCache(size int) Option {
	return func(p *Predictor) {
		if size <= 0 {
			return
		}
		cache, err := lru.New[FeatureVector, float64](size)
		if err != nil {
			p.logger.Warn("prediction cache disabled", zap.Error(err))
			return
		}
		p.cache = cache
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Predictor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPredictor wraps already loaded artifacts. A nil scaler or model is
// reported as unavailable on every evaluation.
func NewPredictor(scaler Scaler, model Regressor, opts ...Option) *Predictor {
	p := &Predictor{scaler: scaler, model: model, logger: zap.NewNop()}
	if scaler == nil {
		p.scalerErr = ErrScalerUnavailable
	}
	if model == nil {
		p.modelErr = ErrModelUnavailable
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LoadPredictor loads both artifacts once. The returned Predictor is never
// nil; the error joins whatever failed to load so callers can decide
// whether to abort or serve degraded.
func LoadPredictor(cfg ArtifactConfig, opts ...Option) (*Predictor, error) {
	p := &Predictor{logger: zap.NewNop(), modelPath: cfg.ModelPath, scalerPath: cfg.ScalerPath}
	for _, opt := range opts {
		opt(p)
	}
	if cfg.CacheSize > 0 && p.cache == nil {
		WithCache(cfg.CacheSize)(p)
	}

	if cfg.ScalerPath == "" {
		p.scalerErr = fmt.Errorf("%w: no scaler path configured", ErrScalerUnavailable)
	} else if scaler, err := LoadScaler(cfg.ScalerPath); err != nil {
		p.scalerErr = fmt.Errorf("%w: %v", ErrScalerUnavailable, err)
	} else {
		p.scaler = scaler
	}

	if cfg.ModelPath == "" {
		p.modelErr = fmt.Errorf("%w: no model path configured", ErrModelUnavailable)
	} else if model, err := LoadModel(cfg.ModelType, cfg.ModelPath); err != nil {
		p.modelErr = fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	} else {
		p.model = model
	}

	if err := p.Ready(); err != nil {
		p.logger.Error("artifacts unavailable", zap.Error(err))
		return p, err
	}
	p.logger.Info("artifacts loaded",
		zap.String("model", cfg.ModelPath),
		zap.String("model_type", cfg.ModelType),
		zap.String("scaler", cfg.ScalerPath))
	return p, nil
}

// Ready reports artifact load failures, if any.
func (p *Predictor) Ready() error {
	return errors.Join(p.scalerErr, p.modelErr)
}

// ArtifactStatus is the load state of one artifact.
type ArtifactStatus struct {
	Loaded bool       `json:"loaded"`
	Path   string     `json:"path,omitempty"`
	Error  string     `json:"error,omitempty"`
	Info   *ModelInfo `json:"info,omitempty"`
}

// Status reports both artifacts for health checks.
func (p *Predictor) Status() (model, scaler ArtifactStatus) {
	model = ArtifactStatus{Loaded: p.modelErr == nil, Path: p.modelPath}
	if p.modelErr != nil {
		model.Error = p.modelErr.Error()
	} else if d, ok := p.model.(Describer); ok {
		info := d.Describe()
		model.Info = &info
	}
	scaler = ArtifactStatus{Loaded: p.scalerErr == nil, Path: p.scalerPath}
	if p.scalerErr != nil {
		scaler.Error = p.scalerErr.Error()
	}
	return model, scaler
}

// EvaluateValues validates an untyped payload and evaluates it.
func (p *Predictor) EvaluateValues(ctx context.Context, values []any) (Result, error) {
	fv, err := ParseFeatures(values)
	if err != nil {
		return Result{}, fail(StageValidate, KindInvalidInput, err)
	}
	return p.Evaluate(ctx, fv)
}

// Evaluate scales fv, runs the model and classifies the prediction.
func (p *Predictor) Evaluate(ctx context.Context, fv FeatureVector) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fail(StageValidate, KindUnknownError, err)
	}

	if p.cache != nil {
		if fs, ok := p.cache.Get(fv); ok {
			return newResult(fv, fs, true), nil
		}
	}

	if p.scalerErr != nil {
		return Result{}, fail(StageScale, KindScalingUnavailable, p.scalerErr)
	}
	scaled, err := p.transform(fv)
	if err != nil {
		return Result{}, fail(StageScale, KindScalingError, err)
	}

	if p.modelErr != nil {
		return Result{}, fail(StagePredict, KindModelUnavailable, p.modelErr)
	}
	fs, err := p.predict(scaled)
	if err != nil {
		return Result{}, fail(StagePredict, KindPredictionError, err)
	}
	if math.IsNaN(fs) || math.IsInf(fs, 0) {
		return Result{}, fail(StagePredict, KindPredictionError, fmt.Errorf("model returned %v", fs))
	}

	if p.cache != nil {
		p.cache.Add(fv, fs)
	}
	p.logger.Debug("prediction",
		zap.Float64s("features", fv[:]),
		zap.Float64("fs", fs))
	return newResult(fv, fs, false), nil
}

func newResult(fv FeatureVector, fs float64, cached bool) Result {
	return Result{
		FS:         RoundFS(fs),
		Conclusion: Classify(fs),
		Features:   fv,
		Raw:        fs,
		Cached:     cached,
	}
}

func (p *Predictor) transform(fv FeatureVector) (out []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("scaler panicked: %v", r)
		}
	}()
	out, err = p.scaler.Transform(fv)
	if err == nil && len(out) != FeatureCount {
		err = fmt.Errorf("scaler returned %d values, want %d", len(out), FeatureCount)
	}
	return out, err
}

func (p *Predictor) predict(scaled []float64) (fs float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			fs, err = 0, fmt.Errorf("model panicked: %v", r)
		}
	}()
	return p.model.Predict(scaled)
}
