package ocr

import (
	"bytes"
	"fmt"
	"image"
	"strings"
	"unicode"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	imgutil "github.com/ironsheep/glyph-practice-mcp/internal/imaging"
)

// DefaultLanguage is the Tesseract language used when none is given.
const DefaultLanguage = "jpn"

// Preprocessing constants: pixels darker than cropThreshold count as ink,
// and cropMargin pixels of paper are kept around it.
const (
	cropThreshold = 128
	cropMargin    = 16
)

// Bounds represents a rectangular bounding box in pixel coordinates of the
// cropped glyph image.
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Symbol is one recognised character with its confidence.
type Symbol struct {
	Text string `json:"text"`

	// Confidence is Tesseract's symbol confidence scaled to 0.0..1.0.
	Confidence float64 `json:"confidence"`

	Bounds Bounds `json:"bounds"`
}

// Reading is the outcome of reading one glyph.
type Reading struct {
	// Text is the recognised text with whitespace removed.
	Text string `json:"text"`

	// Confidence is the best symbol confidence, 0 when nothing was read.
	Confidence float64 `json:"confidence"`

	Symbols  []Symbol `json:"symbols"`
	Language string   `json:"language"`

	// Target echoes the expected glyph; MatchesTarget is true when Text
	// equals it exactly.
	Target        string `json:"target,omitempty"`
	MatchesTarget bool   `json:"matches_target"`
}

// ReadGlyph recognises the single character drawn in img.
//
// An empty language selects DefaultLanguage. A raster with no ink yields an
// empty Reading without invoking Tesseract.
func ReadGlyph(img image.Image, language, target string) (*Reading, error) {
	if language == "" {
		language = DefaultLanguage
	}
	reading := &Reading{
		Symbols:  []Symbol{},
		Language: language,
		Target:   target,
	}

	if _, ok := imgutil.InkBounds(img, cropThreshold); !ok {
		return reading, nil
	}

	glyph := imgutil.CropToInk(img, cropThreshold, cropMargin)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, glyph, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode glyph: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_CHAR); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}
	reading.Text = normalise(text)
	reading.MatchesTarget = target != "" && reading.Text == target

	// Symbol boxes are optional; keep the text when they fail.
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_SYMBOL)
	if err != nil {
		return reading, nil
	}
	for _, box := range boxes {
		word := normalise(box.Word)
		if word == "" {
			continue
		}
		sym := Symbol{
			Text:       word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds: Bounds{
				X1: box.Box.Min.X,
				Y1: box.Box.Min.Y,
				X2: box.Box.Max.X,
				Y2: box.Box.Max.Y,
			},
		}
		reading.Symbols = append(reading.Symbols, sym)
		if sym.Confidence > reading.Confidence {
			reading.Confidence = sym.Confidence
		}
	}
	return reading, nil
}

// Version returns the linked Tesseract version.
func Version() string {
	return gosseract.Version()
}

// normalise drops all whitespace; Tesseract pads CJK output with spaces and
// a trailing newline.
func normalise(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
