package detection

import "image"

type pixel struct {
	X, Y int
}

var (
	neighbours4 = [...]pixel{{0, -1}, {-1, 0}, {1, 0}, {0, 1}}
	neighbours8 = [...]pixel{
		{-1, -1}, {0, -1}, {1, -1},
		{-1, 0}, {1, 0},
		{-1, 1}, {0, 1}, {1, 1},
	}
)

// countExternalRegions counts the 8-connected foreground regions of bin that
// are not nested inside a hole of another region, which is what contour
// retrieval in "external" mode reports.
//
// Background is 4-connected (the dual of 8-connected foreground). Background
// reachable from the image edge is "outside"; a region is external when it
// touches the image edge or an outside background pixel.
func countExternalRegions(bin *image.Gray) int {
	b := bin.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return 0
	}

	fg := make([]bool, width*height)
	for y := 0; y < height; y++ {
		row := bin.Pix[y*bin.Stride : y*bin.Stride+width]
		for x, v := range row {
			fg[y*width+x] = v != 0
		}
	}

	outside := markOutside(fg, width, height)

	visited := make([]bool, width*height)
	count := 0
	for i := range fg {
		if fg[i] && !visited[i] {
			if floodRegion(fg, outside, visited, i%width, i/width, width, height) {
				count++
			}
		}
	}
	return count
}

// markOutside flood-fills the background from every edge pixel.
func markOutside(fg []bool, width, height int) []bool {
	outside := make([]bool, width*height)
	stack := make([]pixel, 0, 2*(width+height))

	push := func(x, y int) {
		i := y*width + x
		if !fg[i] && !outside[i] {
			outside[i] = true
			stack = append(stack, pixel{x, y})
		}
	}
	for x := 0; x < width; x++ {
		push(x, 0)
		push(x, height-1)
	}
	for y := 0; y < height; y++ {
		push(0, y)
		push(width-1, y)
	}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range neighbours4 {
			nx, ny := p.X+d.X, p.Y+d.Y
			if nx >= 0 && nx < width && ny >= 0 && ny < height {
				push(nx, ny)
			}
		}
	}
	return outside
}

// floodRegion visits the 8-connected region containing (startX, startY) and
// reports whether it is external. Iterative to keep deep regions off the
// goroutine stack.
func floodRegion(fg, outside, visited []bool, startX, startY, width, height int) bool {
	external := false
	stack := []pixel{{startX, startY}}
	visited[startY*width+startX] = true

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X == 0 || p.Y == 0 || p.X == width-1 || p.Y == height-1 {
			external = true
		}
		if !external {
			for _, d := range neighbours4 {
				nx, ny := p.X+d.X, p.Y+d.Y
				if outside[ny*width+nx] {
					external = true
					break
				}
			}
		}

		for _, d := range neighbours8 {
			nx, ny := p.X+d.X, p.Y+d.Y
			if nx < 0 || nx >= width || ny < 0 || ny >= height {
				continue
			}
			i := ny*width + nx
			if fg[i] && !visited[i] {
				visited[i] = true
				stack = append(stack, pixel{nx, ny})
			}
		}
	}
	return external
}
