package canvas

import (
	"fmt"

	"github.com/gogpu/gg/text"
)

// Record is the native, replayable form of a surface's content.
type Record struct {
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Target  string   `json:"target,omitempty"`
	Strokes []Stroke `json:"strokes"`
}

// Record returns the sealed strokes together with the raster size and
// target so the same picture can be rebuilt with Replay.
func (s *Surface) Record() Record {
	return Record{
		Width:   s.width,
		Height:  s.height,
		Target:  s.target,
		Strokes: s.Strokes(),
	}
}

// BatchInput is the batch request body understood by cloud handwriting
// recognisers such as MyScript: one stroke group holding parallel x/y/t
// arrays per stroke.
type BatchInput struct {
	Configuration *RecognizerConfig `json:"configuration,omitempty"`
	ContentType   string            `json:"contentType"`
	StrokeGroups  []StrokeGroup     `json:"strokeGroups"`
	Width         int               `json:"width,omitempty"`
	Height        int               `json:"height,omitempty"`
}

// RecognizerConfig selects the recognition language.
type RecognizerConfig struct {
	Lang string `json:"lang,omitempty"`
}

// StrokeGroup is a set of strokes recognised together.
type StrokeGroup struct {
	Strokes []RecognizerStroke `json:"strokes"`
}

// RecognizerStroke holds one stroke as parallel coordinate arrays.
type RecognizerStroke struct {
	X           []float32 `json:"x"`
	Y           []float32 `json:"y"`
	T           []int64   `json:"t,omitempty"`
	PointerType string    `json:"pointerType,omitempty"`
}

// Export converts the sealed ink strokes to recogniser batch input. Eraser
// strokes carry no ink and are left out.
func (s *Surface) Export(lang string) BatchInput {
	return ExportStrokes(s.strokes, s.width, s.height, lang)
}

// ExportStrokes is Export for a stroke list that is not attached to a surface.
func ExportStrokes(strokes []Stroke, width, height int, lang string) BatchInput {
	group := StrokeGroup{Strokes: []RecognizerStroke{}}
	for _, st := range strokes {
		if st.Mode == Erasing {
			continue
		}
		rs := RecognizerStroke{
			X:           make([]float32, len(st.Points)),
			Y:           make([]float32, len(st.Points)),
			T:           make([]int64, len(st.Points)),
			PointerType: "PEN",
		}
		for i, p := range st.Points {
			rs.X[i] = float32(p.X)
			rs.Y[i] = float32(p.Y)
			rs.T[i] = p.T
		}
		group.Strokes = append(group.Strokes, rs)
	}

	in := BatchInput{
		ContentType:  "Text",
		StrokeGroups: []StrokeGroup{group},
		Width:        width,
		Height:       height,
	}
	if lang != "" {
		in.Configuration = &RecognizerConfig{Lang: lang}
	}
	return in
}

// LoadFont reads a TrueType/OpenType font for watermark rendering. CJK
// targets need a font that covers them, e.g. Noto Sans JP.
func LoadFont(path string) (*text.FontSource, error) {
	src, err := text.NewFontSourceFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load watermark font %s: %w", path, err)
	}
	return src, nil
}
