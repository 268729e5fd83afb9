package report

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/KOMKZ/tickerdesk/table"
)

const (
	sparkWidth  = 480
	sparkHeight = 120
	sparkPad    = 6
)

var (
	sparkUp   = color.RGBA{R: 0x1b, G: 0x8a, B: 0x3c, A: 0xff}
	sparkDown = color.RGBA{R: 0xc6, G: 0x28, B: 0x28, A: 0xff}
)

// Sparkline plots col as a PNG line; green when the series ends higher than it starts
// Returns nil when the column has fewer than two numeric points
func Sparkline(f *table.Frame, col string) ([]byte, error) {
	values := make([]float64, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		if v, ok := f.Float(i, col); ok && !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	if len(values) < 2 {
		return nil, nil
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}

	img := image.NewRGBA(image.Rect(0, 0, sparkWidth, sparkHeight))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	c := sparkUp
	if values[len(values)-1] < values[0] {
		c = sparkDown
	}

	w := float64(sparkWidth - 2*sparkPad)
	h := float64(sparkHeight - 2*sparkPad)
	point := func(i int) (int, int) {
		x := sparkPad + int(math.Round(float64(i)/float64(len(values)-1)*w))
		y := sparkPad + int(math.Round((hi-values[i])/(hi-lo)*h))
		return x, y
	}
	x0, y0 := point(0)
	for i := 1; i < len(values); i++ {
		x1, y1 := point(i)
		drawLine(img, x0, y0, x1, y1, c)
		x0, y0 = x1, y1
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// drawLine Bresenham
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.SetRGBA(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
