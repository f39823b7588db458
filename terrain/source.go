package terrain

import (
	"context"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"golang.org/x/sync/errgroup"
)

const (
	maxLat = 85.05112878
	minLat = -85.05112878
)

// Source provides elevation tiles. Initialize must complete before the
// source is asked for tiles.
type Source interface {
	Initialize(ctx context.Context) error
	FetchTile(ctx context.Context, c TileCoord) (*Tile, error)
}

// FetchTiles fetches coords concurrently with at most limit requests in flight.
// Results are index aligned with coords. The first error cancels the
// remaining requests and is returned as produced by src.
func FetchTiles(ctx context.Context, src Source, coords []TileCoord, limit int) ([]*Tile, error) {
	tiles := make([]*Tile, len(coords))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, c := range coords {
		g.Go(func() error {
			t, err := src.FetchTile(ctx, c)
			if err != nil {
				return err
			}
			tiles[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tiles, nil
}

// TilesInBounds lists the tiles at level covering a lon/lat bound.
func TilesInBounds(b orb.Bound, level int) []TileCoord {
	nw, _, _ := tileAt(b.Max.Y(), b.Min.X(), level)
	se, _, _ := tileAt(b.Min.Y(), b.Max.X(), level)

	var out []TileCoord
	for row := nw.Row; row <= se.Row; row++ {
		for col := nw.Col; col <= se.Col; col++ {
			out = append(out, TileCoord{Level: level, Row: row, Col: col})
		}
	}
	return out
}

// tileAt returns the tile containing lat/lon at level and the fractional
// position of the point inside it.
func tileAt(lat, lon float64, level int) (TileCoord, float64, float64) {
	lat = math.Max(minLat, math.Min(maxLat, lat))
	f := maptile.Fraction(orb.Point{lon, lat}, maptile.Zoom(level))

	n := 1 << level
	col := clamp(int(math.Floor(f.X())), 0, n-1)
	row := clamp(int(math.Floor(f.Y())), 0, n-1)
	c := TileCoord{Level: level, Row: row, Col: col}
	return c, f.X() - float64(col), f.Y() - float64(row)
}
