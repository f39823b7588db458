package terrain

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
)

var _ Source = (*Exaggerator)(nil)

// stubSource serves tiles from a map and counts calls.
type stubSource struct {
	initErr   error
	initCalls atomic.Int32

	mu    sync.Mutex
	tiles map[TileCoord]*Tile
	errs  map[TileCoord]error
	// leaked is returned alongside an error to check it is left alone.
	leaked *Tile
}

func (s *stubSource) Initialize(context.Context) error {
	s.initCalls.Add(1)
	return s.initErr
}

func (s *stubSource) FetchTile(_ context.Context, c TileCoord) (*Tile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.errs[c]; ok {
		return s.leaked, err
	}
	t, ok := s.tiles[c]
	if !ok {
		return nil, ErrTileNotFound
	}
	return t.Clone(), nil
}

func TestNewExaggerator(t *testing.T) {
	src := &stubSource{}

	ex, err := NewExaggerator(src)
	if err != nil {
		t.Fatalf("NewExaggerator() error = %v", err)
	}
	if ex.Exaggeration() != DefaultExaggeration {
		t.Errorf("Exaggeration() = %v, want %v", ex.Exaggeration(), DefaultExaggeration)
	}
	if ex.State() != Uninitialized {
		t.Errorf("State() = %v, want %v", ex.State(), Uninitialized)
	}

	if _, err := NewExaggerator(nil); err == nil {
		t.Error("NewExaggerator(nil) should return error")
	}

	for _, f := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewExaggerator(src, WithExaggeration(f))
		if !errors.Is(err, ErrInvalidExaggeration) {
			t.Errorf("WithExaggeration(%v): error = %v, want ErrInvalidExaggeration", f, err)
		}
	}
}

func TestExaggerator_FetchTileScales(t *testing.T) {
	c := TileCoord{Level: 5, Row: 3, Col: 2}
	src := &stubSource{tiles: map[TileCoord]*Tile{
		c: {Width: 2, Height: 2, Values: []float32{10, 20, 0, -5}},
	}}
	ex, err := NewExaggerator(src, WithExaggeration(100))
	if err != nil {
		t.Fatal(err)
	}
	if err := ex.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	got, err := ex.FetchTile(context.Background(), c)
	if err != nil {
		t.Fatalf("FetchTile() error = %v", err)
	}
	want := []float32{1000, 2000, 0, -500}
	if got.Width != 2 || got.Height != 2 || len(got.Values) != len(want) {
		t.Fatalf("FetchTile() shape = %dx%d/%d, want 2x2/4", got.Width, got.Height, len(got.Values))
	}
	for i := range want {
		if got.Values[i] != want[i] {
			t.Errorf("Values[%d] = %v, want %v", i, got.Values[i], want[i])
		}
	}
}

func TestScale(t *testing.T) {
	src := []float32{8848.86, -430.5, 0, 1, 0.25, 3.4e3}

	for _, f := range []float64{1, 0.5, 2, 100, 1e-3} {
		tile := &Tile{Width: 3, Height: 2, Values: append([]float32(nil), src...)}
		Scale(tile, f)

		if tile.Width != 3 || tile.Height != 2 || len(tile.Values) != len(src) {
			t.Fatalf("f=%v: shape changed to %dx%d/%d", f, tile.Width, tile.Height, len(tile.Values))
		}
		for i, v := range src {
			want := float32(float64(v) * f)
			if f == 1 {
				want = v
			}
			if tile.Values[i] != want {
				t.Errorf("f=%v: Values[%d] = %v, want %v", f, i, tile.Values[i], want)
			}
		}
	}
}

func TestScale_KeepsNoData(t *testing.T) {
	tile := &Tile{Width: 2, Height: 1, Values: []float32{float32(math.NaN()), 2}}
	Scale(tile, 100)
	if !isNoData(tile.Values[0]) {
		t.Errorf("no-data sample became %v", tile.Values[0])
	}
	if tile.Values[1] != 200 {
		t.Errorf("Values[1] = %v, want 200", tile.Values[1])
	}
}

func TestExaggerator_FetchErrorPropagates(t *testing.T) {
	c := TileCoord{Level: 5, Row: 3, Col: 2}
	netErr := errors.New("dial tcp: connection refused")
	leaked := &Tile{Width: 2, Height: 1, Values: []float32{7, 9}}
	src := &stubSource{
		errs:   map[TileCoord]error{c: netErr},
		leaked: leaked,
	}
	ex, _ := NewExaggerator(src)

	got, err := ex.FetchTile(context.Background(), c)
	if err != netErr {
		t.Fatalf("FetchTile() error = %v, want the source error unchanged", err)
	}
	if got != nil {
		t.Errorf("FetchTile() tile = %v, want nil", got)
	}
	if leaked.Values[0] != 7 || leaked.Values[1] != 9 {
		t.Errorf("tile of a failed fetch was mutated: %v", leaked.Values)
	}
}

func TestExaggerator_FetchNilTile(t *testing.T) {
	c := TileCoord{Level: 4, Row: 2, Col: 2}
	src := &stubSource{errs: map[TileCoord]error{c: nil}} // returns nil, nil
	ex, _ := NewExaggerator(src)

	got, err := ex.FetchTile(context.Background(), c)
	if !errors.Is(err, ErrTileNotFound) {
		t.Fatalf("FetchTile() error = %v, want ErrTileNotFound", err)
	}
	if got != nil {
		t.Errorf("FetchTile() tile = %v, want nil", got)
	}
}

func TestExaggerator_InitializeFailure(t *testing.T) {
	initErr := errors.New("elevation service unreachable")
	src := &stubSource{initErr: initErr}
	ex, _ := NewExaggerator(src)

	if err := ex.Initialize(context.Background()); err != initErr {
		t.Fatalf("Initialize() error = %v, want %v", err, initErr)
	}
	if ex.State() != Failed {
		t.Errorf("State() = %v, want %v", ex.State(), Failed)
	}

	// The outcome is fixed; the source is not retried.
	if err := ex.Initialize(context.Background()); err != initErr {
		t.Errorf("second Initialize() error = %v, want %v", err, initErr)
	}
	if n := src.initCalls.Load(); n != 1 {
		t.Errorf("source initialized %d times, want 1", n)
	}
}

func TestExaggerator_InitializeOnce(t *testing.T) {
	src := &stubSource{}
	ex, _ := NewExaggerator(src)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ex.Initialize(context.Background()); err != nil {
				t.Errorf("Initialize() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if ex.State() != Ready {
		t.Errorf("State() = %v, want %v", ex.State(), Ready)
	}
	if n := src.initCalls.Load(); n != 1 {
		t.Errorf("source initialized %d times, want 1", n)
	}
}

func TestExaggerator_ConcurrentFetches(t *testing.T) {
	src := &stubSource{tiles: map[TileCoord]*Tile{}}
	var coords []TileCoord
	for col := 0; col < 16; col++ {
		c := TileCoord{Level: 4, Row: 7, Col: col}
		coords = append(coords, c)
		vals := make([]float32, 4)
		for i := range vals {
			vals[i] = float32(col*10 + i)
		}
		src.tiles[c] = &Tile{Width: 2, Height: 2, Values: vals}
	}
	ex, _ := NewExaggerator(src, WithExaggeration(3))
	if err := ex.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	tiles, err := FetchTiles(context.Background(), ex, coords, 4)
	if err != nil {
		t.Fatalf("FetchTiles() error = %v", err)
	}
	for i, c := range coords {
		for j, v := range tiles[i].Values {
			want := float32(c.Col*10+j) * 3
			if v != want {
				t.Errorf("tile %s value %d = %v, want %v", c, j, v, want)
			}
		}
	}
}

func TestFetchTiles_FirstErrorWins(t *testing.T) {
	ok := TileCoord{Level: 1, Row: 0, Col: 0}
	bad := TileCoord{Level: 1, Row: 1, Col: 1}
	boom := errors.New("boom")
	src := &stubSource{
		tiles: map[TileCoord]*Tile{ok: {Width: 1, Height: 1, Values: []float32{1}}},
		errs:  map[TileCoord]error{bad: boom},
	}

	_, err := FetchTiles(context.Background(), src, []TileCoord{ok, bad}, 0)
	if err != boom {
		t.Errorf("FetchTiles() error = %v, want %v", err, boom)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		Uninitialized: "uninitialized",
		Ready:         "ready",
		Failed:        "failed",
		State(9):      "State(9)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int32(s), got, want)
		}
	}
}
