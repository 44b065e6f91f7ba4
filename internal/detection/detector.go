package detection

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ironsheep/glyph-practice-mcp/internal/glyph"
	"github.com/ironsheep/glyph-practice-mcp/internal/imaging"
)

// User-facing result messages.
const (
	MessageSuccess = "✓ Character detected! Good job!"
	MessageRetry   = "⚠ Keep practicing. Try to match the reference character more closely."
	MessageError   = "Error processing image. Please try again."
)

// Defaults for Options.
const (
	DefaultInkThreshold = 50
	DefaultMaxSide      = 400
)

// Result is the outcome of one detection.
type Result struct {
	Detected    bool         `json:"detected"`
	Accuracy    int          `json:"accuracy"`
	Strokes     int          `json:"strokes"`
	Message     string       `json:"message"`
	FilledRatio float64      `json:"filled_ratio"`
	Target      string       `json:"target,omitempty"`
	Script      glyph.Script `json:"script,omitempty"`
	Difficulty  int          `json:"difficulty,omitempty"`
}

// Options configures a Detector.
type Options struct {
	// InkThreshold is the inclusive gray level at or below which a pixel is ink.
	InkThreshold uint8
	// MaxSide downscales larger rasters before processing. Zero means 400;
	// negative disables downscaling.
	MaxSide int
	// Policy defaults to DefaultPolicy().
	Policy ScoringPolicy
	Logger *zap.Logger
}

// DefaultOptions returns threshold 50, a 400 px cap and the heuristic policy.
func DefaultOptions() Options {
	return Options{
		InkThreshold: DefaultInkThreshold,
		MaxSide:      DefaultMaxSide,
		Policy:       DefaultPolicy(),
	}
}

type policyHolder struct {
	ScoringPolicy
}

// Detector runs the pipeline against an ImageProcessor. It is safe for
// concurrent use; the only state shared between calls is the processor's
// ready flag and the current scoring policy.
type Detector struct {
	proc      ImageProcessor
	threshold uint8
	maxSide   int
	log       *zap.Logger

	ready  atomic.Bool
	loads  singleflight.Group
	policy atomic.Pointer[policyHolder]
}

// New returns a detector using proc. The processor is not loaded until the
// first Detect.
func New(proc ImageProcessor, opts Options) *Detector {
	if opts.MaxSide == 0 {
		opts.MaxSide = DefaultMaxSide
	}
	if opts.Policy == nil {
		opts.Policy = DefaultPolicy()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	d := &Detector{
		proc:      proc,
		threshold: opts.InkThreshold,
		maxSide:   opts.MaxSide,
		log:       log,
	}
	d.policy.Store(&policyHolder{opts.Policy})
	return d
}

// Ready reports whether the processor has loaded.
func (d *Detector) Ready() bool {
	return d.ready.Load()
}

// Policy returns the scoring policy in use.
func (d *Detector) Policy() ScoringPolicy {
	return d.policy.Load().ScoringPolicy
}

// SetPolicy swaps the scoring policy. Detections already past the feature
// stage finish with the policy they loaded.
func (d *Detector) SetPolicy(p ScoringPolicy) {
	if p == nil {
		p = DefaultPolicy()
	}
	d.policy.Store(&policyHolder{p})
}

// Detect evaluates raster as an attempt at target. It always returns a
// Result; failures are reported as zero confidence with MessageError.
func (d *Detector) Detect(ctx context.Context, raster image.Image, target string) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("detector panicked", zap.Any("panic", r), zap.String("target", target))
			res = failed(target)
		}
	}()

	f, err := d.Analyze(ctx, raster)
	if err != nil {
		d.log.Warn("detection failed", zap.Error(err), zap.String("target", target))
		return failed(target)
	}

	score := d.Policy().Score(f)
	res = Result{
		Detected:    score.Detected,
		Accuracy:    score.Accuracy,
		Strokes:     f.Strokes,
		Message:     MessageRetry,
		FilledRatio: f.FilledRatio,
	}
	if score.Detected {
		res.Message = MessageSuccess
	}
	label(&res, target)

	d.log.Debug("detection complete",
		zap.String("target", target),
		zap.Int("strokes", f.Strokes),
		zap.Float64("filled_ratio", f.FilledRatio),
		zap.Int("accuracy", res.Accuracy),
		zap.Bool("detected", res.Detected),
		zap.Duration("elapsed", time.Since(start)))
	return res
}

// Analyze loads the processor if needed and extracts the features of raster
// without scoring them.
func (d *Detector) Analyze(ctx context.Context, raster image.Image) (Features, error) {
	if raster == nil || raster.Bounds().Empty() {
		return Features{}, fmt.Errorf("empty raster")
	}
	if err := d.Load(ctx); err != nil {
		return Features{}, fmt.Errorf("failed to load vision backend: %w", err)
	}

	if d.maxSide > 0 {
		raster = imaging.FitWithin(raster, d.maxSide)
	}

	gray, err := d.proc.Grayscale(raster)
	if err != nil {
		return Features{}, fmt.Errorf("grayscale: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Features{}, err
	}
	bin, err := d.proc.ThresholdInv(gray, d.threshold)
	if err != nil {
		return Features{}, fmt.Errorf("threshold: %w", err)
	}
	strokes, err := d.proc.ExternalContours(bin)
	if err != nil {
		return Features{}, fmt.Errorf("contours: %w", err)
	}
	ink, err := d.proc.CountNonZero(bin)
	if err != nil {
		return Features{}, fmt.Errorf("count ink: %w", err)
	}

	b := bin.Bounds()
	total := b.Dx() * b.Dy()
	return Features{
		Strokes:     strokes,
		InkPixels:   ink,
		TotalPixels: total,
		FilledRatio: float64(ink) / float64(total),
	}, nil
}

// Load loads the processor unless it is already ready. Detect calls it on
// demand; calling it up front moves the load cost out of the first request.
// Concurrent callers share a single load and a failed load is attempted again
// on the next call.
func (d *Detector) Load(ctx context.Context) error {
	if d.ready.Load() {
		return nil
	}
	_, err, _ := d.loads.Do("load", func() (any, error) {
		if d.ready.Load() {
			return nil, nil
		}
		start := time.Now()
		if err := d.proc.Load(ctx); err != nil {
			return nil, err
		}
		d.ready.Store(true)
		d.log.Info("vision backend ready", zap.Duration("elapsed", time.Since(start)))
		return nil, nil
	})
	return err
}

func failed(target string) Result {
	res := Result{Message: MessageError}
	label(&res, target)
	return res
}

func label(res *Result, target string) {
	if target == "" {
		return
	}
	res.Target = target
	res.Script = glyph.Classify(target)
	res.Difficulty = glyph.Difficulty(target)
}
