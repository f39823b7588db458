package terrain

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

// flatSource returns a uniform tile of height h for every coordinate.
type flatSource struct{ h float32 }

func (flatSource) Initialize(context.Context) error { return nil }

func (s flatSource) FetchTile(_ context.Context, c TileCoord) (*Tile, error) {
	if !c.Valid() {
		return nil, ErrInvalidTile
	}
	vals := make([]float32, 16)
	for i := range vals {
		vals[i] = s.h
	}
	return &Tile{Width: 4, Height: 4, Values: vals}, nil
}

func TestPickHeight(t *testing.T) {
	ex, err := NewExaggerator(flatSource{h: 12.5}, WithExaggeration(4))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := PickHeight(ctx, ex, 12, HeightRequest{Lat: 46.5586, Lon: 7.8250})
	if err != nil {
		t.Fatalf("PickHeight() error = %v", err)
	}
	if result.Height != 50 {
		t.Errorf("PickHeight() height = %v, want 50", result.Height)
	}
	if result.Meta.Z != 12 || result.Meta.GridSize != 4 || result.Meta.Exaggeration != 4 {
		t.Errorf("PickHeight() meta = %+v", result.Meta)
	}
	if result.Lat != 46.5586 || result.Lon != 7.8250 {
		t.Errorf("PickHeight() echoed %v,%v", result.Lat, result.Lon)
	}
}

func TestPickHeight_NilSource(t *testing.T) {
	_, err := PickHeight(context.Background(), nil, 14, HeightRequest{Lat: 25, Lon: 55})
	if err == nil {
		t.Error("PickHeight() with nil source should return error")
	}
}

func TestPickHeight_SourceError(t *testing.T) {
	src := &stubSource{} // has no tiles
	_, err := PickHeight(context.Background(), src, 14, HeightRequest{Lat: 25, Lon: 55})
	if !errors.Is(err, ErrTileNotFound) {
		t.Errorf("PickHeight() error = %v, want ErrTileNotFound", err)
	}
}

func TestSampler_Height(t *testing.T) {
	ctx := context.Background()

	s := &Sampler{Source: flatSource{h: 7}, Level: 10}
	if got, err := s.Height(ctx, 10, 10); err != nil || got != 7 {
		t.Errorf("Height() = %v, %v, want 7", got, err)
	}

	void := &Sampler{Source: flatSource{h: float32(math.NaN())}, Level: 10}
	if got, err := void.Height(ctx, 10, 10); err != nil || got != 0 {
		t.Errorf("Height() over a void = %v, %v, want 0", got, err)
	}

	missing := &Sampler{Source: &stubSource{}, Level: 10}
	if _, err := missing.Height(ctx, 10, 10); !errors.Is(err, ErrTileNotFound) {
		t.Errorf("Height() on a failing source error = %v, want ErrTileNotFound", err)
	}
}

func TestSearchIntersection(t *testing.T) {
	ex, err := NewExaggerator(flatSource{h: 10}, WithExaggeration(10))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		req     IntersectionRequest
		wantHit bool
	}{
		{
			// Pitched 45 degrees down from 300 m, the exaggerated ground is at 100 m.
			name: "looking down",
			req: IntersectionRequest{
				CamLon: 55.0, CamLat: 25.0, CamAlt: 300,
				Quat: [4]float64{math.Cos(-math.Pi / 8), 0, math.Sin(-math.Pi / 8), 0},
				Zoom: 10, Step: 5, MaxDist: 1000,
			},
			wantHit: true,
		},
		{
			name: "level flight above terrain",
			req: IntersectionRequest{
				CamLon: 55.0, CamLat: 25.0, CamAlt: 300,
				Quat: [4]float64{1, 0, 0, 0},
				Zoom: 10, Step: 50, MaxDist: 500,
			},
			wantHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			result, err := SearchIntersection(ctx, ex, 10, tt.req)
			if err != nil {
				t.Fatalf("SearchIntersection() error = %v", err)
			}
			if result.Hit != tt.wantHit {
				t.Fatalf("SearchIntersection() hit = %v, want %v", result.Hit, tt.wantHit)
			}
			if tt.wantHit && result.Ground != 100 {
				t.Errorf("SearchIntersection() ground = %v, want 100", result.Ground)
			}
			if result.Lon < -180 || result.Lon > 180 || result.Lat < -90 || result.Lat > 90 {
				t.Errorf("SearchIntersection() out of range: %v,%v", result.Lat, result.Lon)
			}
		})
	}
}

func TestSearchIntersection_NilSource(t *testing.T) {
	_, err := SearchIntersection(context.Background(), nil, 14, IntersectionRequest{Quat: [4]float64{1, 0, 0, 0}})
	if err == nil {
		t.Error("SearchIntersection() with nil source should return error")
	}
}

// failingSource fails every fetch with err.
type failingSource struct{ err error }

func (failingSource) Initialize(context.Context) error { return nil }

func (s failingSource) FetchTile(context.Context, TileCoord) (*Tile, error) {
	return nil, s.err
}

// blockingSource holds every fetch until the caller's context ends.
type blockingSource struct{}

func (blockingSource) Initialize(context.Context) error { return nil }

func (blockingSource) FetchTile(ctx context.Context, _ TileCoord) (*Tile, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

var lookingDown = IntersectionRequest{
	CamLon: 55.0, CamLat: 25.0, CamAlt: 300,
	Quat: [4]float64{math.Cos(-math.Pi / 8), 0, math.Sin(-math.Pi / 8), 0},
	Zoom: 10, Step: 5, MaxDist: 1000,
}

func TestSearchIntersection_SourceError(t *testing.T) {
	upstream := &StatusError{Code: 503, URL: "http://tiles.invalid/10/0/0.ddm"}
	ex, err := NewExaggerator(failingSource{err: upstream})
	if err != nil {
		t.Fatal(err)
	}

	result, err := SearchIntersection(context.Background(), ex, 10, lookingDown)
	if !errors.Is(err, upstream) {
		t.Fatalf("SearchIntersection() error = %v, want %v", err, upstream)
	}
	if result.Hit {
		t.Error("SearchIntersection() reported a hit from a failing source")
	}
}

func TestSearchIntersection_Cancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := SearchIntersection(ctx, blockingSource{}, 10, lookingDown)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("SearchIntersection() error = %v, want context.DeadlineExceeded", err)
	}
	if d := time.Since(start); d > 2*time.Second {
		t.Errorf("SearchIntersection() took %v after its deadline", d)
	}
}
