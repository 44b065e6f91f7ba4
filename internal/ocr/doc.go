// Package ocr reads a single handwritten glyph with Tesseract.
//
// The reading is informational: it gives the learner a second opinion next
// to the heuristic detector, and it never changes a detection result.
//
// # Prerequisites
//
// Tesseract and the language data must be installed on the host:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-jpn
//   - macOS: brew install tesseract tesseract-lang
//
// The default language is Japanese ("jpn"). Vertical text data ("jpn_vert")
// and combined languages ("jpn+eng") are accepted as Tesseract allows.
//
// # Preprocessing
//
// Before recognition the raster is cropped to its ink bounds with a white
// margin, because Tesseract's single-character mode expects a glyph that
// fills most of the page.
//
// # Thread Safety
//
// Each call creates and closes its own Tesseract client, so concurrent calls
// are safe.
package ocr
