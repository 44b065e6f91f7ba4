package detection

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// binaryFrom builds a binary image from rows of '#' (foreground) and '.'.
func binaryFrom(rows ...string) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, len(rows[0]), len(rows)))
	for y, row := range rows {
		for x, c := range row {
			if c == '#' {
				img.Pix[y*img.Stride+x] = 255
			}
		}
	}
	return img
}

func TestExternalContours(t *testing.T) {
	tests := []struct {
		name string
		rows []string
		want int
	}{
		{"empty", []string{
			".....",
			".....",
		}, 0},
		{"two separate blobs", []string{
			"##...",
			"##..#",
			"....#",
		}, 2},
		{"diagonal neighbours join", []string{
			"#....",
			".#...",
			"..#..",
		}, 1},
		{"ring with nested dot", []string{
			".......",
			".#####.",
			".#...#.",
			".#.#.#.",
			".#...#.",
			".#####.",
			".......",
		}, 1},
		{"ring with gap lets the dot out", []string{
			".......",
			".##.##.",
			".#...#.",
			".#.#.#.",
			".#...#.",
			".#####.",
			".......",
		}, 2},
		{"blob touching the border", []string{
			"###",
			"#.#",
			"###",
		}, 1},
		{"nested ring inside ring", []string{
			".........",
			".#######.",
			".#.....#.",
			".#.###.#.",
			".#.#.#.#.",
			".#.###.#.",
			".#.....#.",
			".#######.",
			".........",
		}, 1},
	}

	p := NewNativeProcessor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ExternalContours(binaryFrom(tt.rows...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestThresholdInv(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 4, 1))
	copy(gray.Pix, []uint8{0, 50, 51, 255})

	p := NewNativeProcessor()
	bin, err := p.ThresholdInv(gray, 50)
	require.NoError(t, err)
	assert.Equal(t, []uint8{255, 255, 0, 0}, bin.Pix)

	all, err := p.ThresholdInv(gray, 255)
	require.NoError(t, err)
	assert.Equal(t, []uint8{255, 255, 255, 255}, all.Pix)
}

func TestCountNonZero(t *testing.T) {
	p := NewNativeProcessor()
	n, err := p.CountNonZero(binaryFrom(
		"#.#",
		"...",
		"##.",
	))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// A sub-image has a stride wider than its width.
	parent := binaryFrom(
		"####",
		"#..#",
		"####",
	)
	sub := parent.SubImage(image.Rect(1, 1, 3, 3)).(*image.Gray)
	n, err = p.CountNonZero(sub)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestGrayscale(t *testing.T) {
	img := blankRaster(3, 1)
	img.Set(1, 0, inkColour)

	g, err := NewNativeProcessor().Grayscale(img)
	require.NoError(t, err)
	assert.Greater(t, g.GrayAt(0, 0).Y, uint8(240))
	assert.LessOrEqual(t, g.GrayAt(1, 0).Y, uint8(DefaultInkThreshold))

	_, err = NewNativeProcessor().Grayscale(image.NewRGBA(image.Rectangle{}))
	assert.Error(t, err)
}

func TestGrayscale_BT601(t *testing.T) {
	tests := []struct {
		name string
		c    color.RGBA
		gray uint8
		ink  bool
	}{
		{"green at the threshold", color.RGBA{G: 85, A: 255}, 50, true},
		{"green just above", color.RGBA{G: 87, A: 255}, 51, false},
		{"pure red", color.RGBA{R: 255, A: 255}, 76, false},
		{"pure blue", color.RGBA{B: 255, A: 255}, 29, true},
	}

	p := NewNativeProcessor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewRGBA(image.Rect(0, 0, 1, 1))
			img.SetRGBA(0, 0, tt.c)

			g, err := p.Grayscale(img)
			require.NoError(t, err)
			assert.Equal(t, tt.gray, g.GrayAt(0, 0).Y)

			bin, err := p.ThresholdInv(g, DefaultInkThreshold)
			require.NoError(t, err)
			assert.Equal(t, tt.ink, bin.GrayAt(0, 0).Y == 255)
		})
	}
}

func TestGrayscale_OffsetBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 8, 7))
	img.SetRGBA(6, 6, color.RGBA{A: 255})

	g, err := NewNativeProcessor().Grayscale(img)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), g.Bounds())
	assert.Equal(t, uint8(0), g.GrayAt(6, 6).Y)
	assert.Equal(t, uint8(0), g.GrayAt(5, 5).Y, "transparent pixels carry no colour")
}
