package terrain

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidTile is returned for coordinates outside the tiling scheme.
	ErrInvalidTile = errors.New("invalid tile coordinate")
	// ErrTileNotFound is returned when a source has no data for a coordinate.
	ErrTileNotFound = errors.New("tile not found")
)

// TileCoord addresses one tile of the XYZ quad-tree. Row counts from the north edge.
type TileCoord struct {
	Level int
	Row   int
	Col   int
}

func (c TileCoord) String() string {
	return fmt.Sprintf("%d/%d/%d", c.Level, c.Row, c.Col)
}

// Valid reports whether the coordinate exists at its level.
func (c TileCoord) Valid() bool {
	if c.Level < 0 || c.Level > 30 || c.Row < 0 || c.Col < 0 {
		return false
	}
	n := 1 << c.Level
	return c.Row < n && c.Col < n
}

// Tile is a grid of elevation samples, row-major from the north-west corner.
// No-data samples are NaN.
type Tile struct {
	Width  int
	Height int
	Values []float32
}

func (t *Tile) Validate() error {
	if t == nil {
		return errors.New("tile is nil")
	}
	if t.Width <= 0 || t.Height <= 0 {
		return fmt.Errorf("tile: non-positive size %dx%d", t.Width, t.Height)
	}
	if len(t.Values) != t.Width*t.Height {
		return fmt.Errorf("tile: %d values for %dx%d grid", len(t.Values), t.Width, t.Height)
	}
	return nil
}

func (t *Tile) Clone() *Tile {
	vals := make([]float32, len(t.Values))
	copy(vals, t.Values)
	return &Tile{Width: t.Width, Height: t.Height, Values: vals}
}

func (t *Tile) at(row, col int) float32 {
	return t.Values[row*t.Width+col]
}

// heightAtFrac interpolates bilinearly at fractional position (fx, fy) in [0,1).
// When some corners are no-data the valid ones are averaged.
func (t *Tile) heightAtFrac(fx, fy float64) (float64, bool) {
	if t.Width < 2 || t.Height < 2 {
		return 0, false
	}
	px := fx * float64(t.Width-1)
	py := fy * float64(t.Height-1)

	col := clamp(int(math.Floor(px)), 0, t.Width-2)
	row := clamp(int(math.Floor(py)), 0, t.Height-2)

	dx := px - float64(col)
	dy := py - float64(row)

	p00 := t.at(row, col)
	p10 := t.at(row, col+1)
	p01 := t.at(row+1, col)
	p11 := t.at(row+1, col+1)

	var sum float64
	var cnt int
	for _, v := range []float32{p00, p10, p01, p11} {
		if !isNoData(v) {
			sum += float64(v)
			cnt++
		}
	}
	if cnt == 0 {
		return 0, false
	}
	if cnt == 4 {
		a := (1-dx)*float64(p00) + dx*float64(p10)
		b := (1-dx)*float64(p01) + dx*float64(p11)
		return (1-dy)*a + dy*b, true
	}
	return sum / float64(cnt), true
}

func isNoData(v float32) bool {
	return math.IsNaN(float64(v))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
