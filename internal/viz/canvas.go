package viz

import (
	"math"
	"strings"
)

// Braille cells hold 2x4 dots:
// 1 4
// 2 5
// 3 6
// 7 8
var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is a braille dot grid of Width x Height cells, addressed in dots:
// (Width*2) x (Height*4).
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

func (c *Canvas) Dots() (int, int) { return c.Width * 2, c.Height * 4 }

func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= pixelMap[y%4][x%2]
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine uses Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Bars draws p as vertical bars scaled to its largest entry. When p has
// more entries than the canvas has dot columns, neighbouring entries share a
// column and the largest one is drawn.
func (c *Canvas) Bars(p []float64) {
	w, h := c.Dots()
	if len(p) == 0 {
		return
	}
	top := maxOf(p)
	if top <= 0 {
		return
	}
	cols := min(len(p), w)
	barW := max(w/cols, 1)
	for col := 0; col < cols; col++ {
		lo, hi := col*len(p)/cols, (col+1)*len(p)/cols
		v := maxOf(p[lo:hi])
		height := int(math.Round(v / top * float64(h-1)))
		x0 := col * barW
		// leave a gap between bars once they are wide enough
		x1 := x0 + barW - 1
		if barW > 2 {
			x1--
		}
		for x := x0; x <= x1; x++ {
			c.DrawLine(x, h-1, x, h-1-height)
		}
	}
}

// Ring places the states evenly on a circle, starting at the top and going
// clockwise, with a spoke towards each state whose length follows p.
func (c *Canvas) Ring(p []float64) {
	w, h := c.Dots()
	if len(p) == 0 {
		return
	}
	cx, cy := w/2, h/2
	r := float64(min(cx, cy) - 1)
	top := maxOf(p)
	for i, v := range p {
		theta := 2 * math.Pi * float64(i) / float64(len(p))
		sin, cos := math.Sincos(theta)
		x, y := cx+int(r*sin), cy-int(r*cos)
		c.Set(x, y)
		if top > 0 {
			l := r * v / top
			c.DrawLine(cx, cy, cx+int(l*sin), cy-int(l*cos))
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func maxOf(xs []float64) float64 {
	m := math.Inf(-1)
	for _, x := range xs {
		m = math.Max(m, x)
	}
	return m
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
