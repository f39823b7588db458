package terrain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// DefaultExaggeration renders terrain at 100x its real relief.
const DefaultExaggeration = 100.0

var ErrInvalidExaggeration = errors.New("exaggeration must be a finite number > 0")

// State is the lifecycle state of an Exaggerator.
type State int32

const (
	Uninitialized State = iota
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

type ExaggeratorOption func(*Exaggerator)

// WithExaggeration sets the multiplier applied to every elevation sample.
func WithExaggeration(f float64) ExaggeratorOption {
	return func(e *Exaggerator) { e.factor = f }
}

// Exaggerator wraps a Source and scales every sample of the tiles it
// returns by a fixed factor. It is itself a Source.
type Exaggerator struct {
	src    Source
	factor float64

	once    sync.Once
	initErr error
	state   atomic.Int32
}

func NewExaggerator(src Source, opts ...ExaggeratorOption) (*Exaggerator, error) {
	if src == nil {
		return nil, fmt.Errorf("source is nil")
	}
	e := &Exaggerator{src: src, factor: DefaultExaggeration}
	for _, opt := range opts {
		opt(e)
	}
	if math.IsNaN(e.factor) || math.IsInf(e.factor, 0) || e.factor <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExaggeration, e.factor)
	}
	return e, nil
}

func (e *Exaggerator) Exaggeration() float64 { return e.factor }

func (e *Exaggerator) State() State { return State(e.state.Load()) }

// Initialize initializes the underlying source once. Every caller, including
// later ones, gets the outcome of that single attempt; a failure is returned
// exactly as the underlying source reported it.
func (e *Exaggerator) Initialize(ctx context.Context) error {
	e.once.Do(func() {
		e.initErr = e.src.Initialize(ctx)
		if e.initErr != nil {
			e.state.Store(int32(Failed))
			return
		}
		e.state.Store(int32(Ready))
	})
	return e.initErr
}

// FetchTile fetches c from the underlying source and scales the returned
// samples in place. Errors from the source are returned unchanged.
func (e *Exaggerator) FetchTile(ctx context.Context, c TileCoord) (*Tile, error) {
	t, err := e.src.FetchTile(ctx, c)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: source returned no tile for %s", ErrTileNotFound, c)
	}
	Scale(t, e.factor)
	return t, nil
}

// Scale multiplies every sample of t by f in place.
func Scale(t *Tile, f float64) {
	for i, v := range t.Values {
		t.Values[i] = float32(float64(v) * f)
	}
}
