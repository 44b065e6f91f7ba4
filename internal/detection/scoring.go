package detection

import (
	"fmt"
	"math"
)

// Features are the measurements the pipeline extracts from one raster.
type Features struct {
	Strokes     int     `json:"strokes"`
	InkPixels   int     `json:"ink_pixels"`
	TotalPixels int     `json:"total_pixels"`
	FilledRatio float64 `json:"filled_ratio"`
}

// Score is a policy's verdict on a set of features.
type Score struct {
	Accuracy int
	Detected bool
	InBounds bool
}

// ScoringPolicy turns features into an accuracy and a pass/fail decision.
// Implementations must be deterministic and safe for concurrent use.
type ScoringPolicy interface {
	Score(f Features) Score
}

// HeuristicPolicy is the bounded linear scorer.
type HeuristicPolicy struct {
	MinStrokes int     `json:"min_strokes" yaml:"min_strokes" toml:"min_strokes"`
	MaxStrokes int     `json:"max_strokes" yaml:"max_strokes" toml:"max_strokes"`
	MinFilled  float64 `json:"min_filled" yaml:"min_filled" toml:"min_filled"`
	MaxFilled  float64 `json:"max_filled" yaml:"max_filled" toml:"max_filled"`

	Base       float64 `json:"base" yaml:"base" toml:"base"`
	PerStroke  float64 `json:"per_stroke" yaml:"per_stroke" toml:"per_stroke"`
	FillWeight float64 `json:"fill_weight" yaml:"fill_weight" toml:"fill_weight"`
	Cap        float64 `json:"cap" yaml:"cap" toml:"cap"`
	PassMark   int     `json:"pass_mark" yaml:"pass_mark" toml:"pass_mark"`
}

// DefaultPolicy returns the stock bounds and weights.
func DefaultPolicy() HeuristicPolicy {
	return HeuristicPolicy{
		MinStrokes: 1,
		MaxStrokes: 15,
		MinFilled:  0.001,
		MaxFilled:  0.5,
		Base:       50,
		PerStroke:  3,
		FillWeight: 200,
		Cap:        95,
		PassMark:   50,
	}
}

// Validate rejects inverted bounds and scores outside 0..100.
func (p HeuristicPolicy) Validate() error {
	switch {
	case p.MinStrokes < 0 || p.MaxStrokes < p.MinStrokes:
		return fmt.Errorf("stroke bounds [%d, %d] are invalid", p.MinStrokes, p.MaxStrokes)
	case p.MinFilled < 0 || p.MaxFilled > 1 || p.MaxFilled < p.MinFilled:
		return fmt.Errorf("fill bounds [%g, %g] are invalid", p.MinFilled, p.MaxFilled)
	case p.Cap < 0 || p.Cap > 100:
		return fmt.Errorf("accuracy cap %g outside 0..100", p.Cap)
	case p.PassMark < 0 || p.PassMark > 100:
		return fmt.Errorf("pass mark %d outside 0..100", p.PassMark)
	}
	return nil
}

// Score implements ScoringPolicy. Accuracy is rounded before comparing with
// the pass mark, so Detected holds exactly when the bounds hold and the
// reported accuracy reaches PassMark.
func (p HeuristicPolicy) Score(f Features) Score {
	inBounds := f.Strokes >= p.MinStrokes && f.Strokes <= p.MaxStrokes &&
		f.FilledRatio >= p.MinFilled && f.FilledRatio <= p.MaxFilled
	if !inBounds {
		return Score{}
	}

	raw := p.Base + p.PerStroke*float64(f.Strokes) + p.FillWeight*f.FilledRatio
	// Comparing the rounded value lets a raw 49.5 pass a mark of 50. With the
	// default constants an in-bounds raw score is at least 53, so no result
	// differs from an unrounded comparison.
	acc := int(math.Round(math.Max(0, math.Min(raw, p.Cap))))
	return Score{
		Accuracy: acc,
		Detected: acc >= p.PassMark,
		InBounds: true,
	}
}
