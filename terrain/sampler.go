package terrain

import (
	"context"
	"errors"
)

// ErrNoData is returned when every sample around a point is no-data.
var ErrNoData = errors.New("nodata around point")

// Meta describes the tile a height was read from.
type Meta struct {
	Z, X, Y      int
	GridSize     int
	Exaggeration float64 // 0 when the source is not an Exaggerator
}

// Sampler reads point heights from the tiles of a Source at a fixed level.
type Sampler struct {
	Source Source
	Level  int
}

// HeightAt interpolates the height at lat/lon.
func (s *Sampler) HeightAt(ctx context.Context, lat, lon float64) (float64, Meta, error) {
	c, fx, fy := tileAt(lat, lon, s.Level)
	meta := Meta{Z: c.Level, X: c.Col, Y: c.Row}
	if e, ok := s.Source.(*Exaggerator); ok {
		meta.Exaggeration = e.Exaggeration()
	}

	t, err := s.Source.FetchTile(ctx, c)
	if err != nil {
		return 0, meta, err
	}
	if err := t.Validate(); err != nil {
		return 0, meta, err
	}
	meta.GridSize = t.Width

	h, ok := t.heightAtFrac(fx, fy)
	if !ok {
		return 0, meta, ErrNoData
	}
	return h, meta, nil
}

// Height satisfies raycast.ElevationSource. Voids read as sea level; fetch
// and context errors are returned so the ray march stops.
func (s *Sampler) Height(ctx context.Context, lat, lon float64) (float64, error) {
	h, _, err := s.HeightAt(ctx, lat, lon)
	if errors.Is(err, ErrNoData) {
		return 0, nil
	}
	return h, err
}
