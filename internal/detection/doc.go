// Package detection decides whether a practice drawing plausibly shows a
// character, using classical image features instead of a trained model.
//
// # Pipeline
//
// [Detector.Detect] runs the same steps for every raster:
//
//  1. Grayscale conversion
//  2. Inverted fixed threshold: pixels at or below the ink threshold
//     (default 50) become foreground
//  3. External contour count, used as the stroke count estimate. Touching
//     strokes merge into one contour, so this undercounts.
//  4. Filled ratio: foreground pixels over total pixels
//  5. Scoring by the configured [ScoringPolicy]
//
// The image operations are behind the [ImageProcessor] interface.
// [NativeProcessor] is pure Go (bild plus connected-component labelling);
// [GoCVProcessor] calls OpenCV and is only functional in binaries built with
// the gocv tag.
//
// # Scoring
//
// [HeuristicPolicy] requires the stroke count and filled ratio to fall
// inside configured bounds (default [1, 15] and [0.001, 0.5]) and then
// computes
//
//	accuracy = round(min(50 + 3*strokes + 200*filled, 95))
//
// A drawing is detected when the bounds hold and accuracy reaches 50.
// Out-of-bounds drawings score 0. The constants are tuning values with no
// calibration behind them; all of them are configurable.
//
// # Failure handling
//
// Detect never returns an error and never panics. A processor that fails to
// load, fails mid-pipeline or panics produces a zero-confidence [Result]
// carrying [MessageError].
package detection
