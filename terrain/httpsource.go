package terrain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

type HTTPSourceConfig struct {
	CacheDir          string
	URLTemplate       string // "https://{s}.geodata.microavia.com/srtm/{z}/{y}/{x}.ddm"
	Subdomains        []string
	PermitDownload    bool
	HTTPClientTimeout time.Duration

	MaxLevel     int
	NoDataValues []float32
	MaxMemTiles  int

	// Canary is fetched by Initialize to prove the endpoint is reachable.
	Canary TileCoord
}

// StatusError is returned when the tile endpoint answers with an unexpected status.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.URL)
}

// HTTPSource fetches DDM tiles from a URL template, caching them on disk and
// in memory.
type HTTPSource struct {
	cfg   HTTPSourceConfig
	http  *http.Client
	memMu sync.Mutex
	mem   *lru // key "z/y/x"
	subIx atomic.Uint32
	group singleflight.Group
}

func NewHTTPSource(cfg HTTPSourceConfig) (*HTTPSource, error) {
	if cfg.CacheDir == "" {
		return nil, fmt.Errorf("CacheDir required")
	}
	if cfg.PermitDownload && cfg.URLTemplate == "" {
		return nil, fmt.Errorf("URLTemplate required when downloads are permitted")
	}
	if cfg.MaxMemTiles <= 0 {
		cfg.MaxMemTiles = 64
	}
	if cfg.MaxLevel <= 0 {
		cfg.MaxLevel = 14
	}
	if cfg.HTTPClientTimeout <= 0 {
		cfg.HTTPClientTimeout = 30 * time.Second
	}
	return &HTTPSource{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.HTTPClientTimeout},
		mem:  newLRU(cfg.MaxMemTiles),
	}, nil
}

func (s *HTTPSource) Config() HTTPSourceConfig { return s.cfg }

// Initialize prepares the cache directory and, when downloads are
// permitted, fetches the canary tile.
func (s *HTTPSource) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.CacheDir, 0o755); err != nil {
		return err
	}
	if !s.cfg.PermitDownload {
		return nil
	}
	if _, err := s.FetchTile(ctx, s.cfg.Canary); err != nil {
		return fmt.Errorf("canary tile %s: %w", s.cfg.Canary, err)
	}
	log.Printf("terrain source ready: %s", s.cfg.URLTemplate)
	return nil
}

// FetchTile returns a private copy of the tile; callers may mutate it.
func (s *HTTPSource) FetchTile(ctx context.Context, c TileCoord) (*Tile, error) {
	if !c.Valid() || c.Level > s.cfg.MaxLevel {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTile, c)
	}
	key := c.String()

	// 1) mem
	if t, ok := s.getMem(key); ok {
		return t.Clone(), nil
	}

	// 2) disk
	if t, err := s.loadFromDisk(c); err == nil {
		s.putMem(key, t)
		return t.Clone(), nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	// 3) download
	if !s.cfg.PermitDownload {
		return nil, fmt.Errorf("%w: %s (download disabled)", ErrTileNotFound, c)
	}
	// The shared download outlives any single caller; each caller only
	// stops waiting when its own context ends.
	ch := s.group.DoChan(key, func() (any, error) {
		t, err := s.downloadTile(context.WithoutCancel(ctx), c)
		if err != nil {
			return nil, err
		}
		s.putMem(key, t)
		return t, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Tile).Clone(), nil
	}
}

func (s *HTTPSource) expandURL(c TileCoord) string {
	u := s.cfg.URLTemplate
	sub := ""
	if n := len(s.cfg.Subdomains); n > 0 {
		sub = s.cfg.Subdomains[int(s.subIx.Add(1))%n]
	}
	r := strings.NewReplacer(
		"{s}", sub,
		"{z}", strconv.Itoa(c.Level),
		"{x}", strconv.Itoa(c.Col),
		"{y}", strconv.Itoa(c.Row),
	)
	return r.Replace(u)
}

func (s *HTTPSource) cachePath(c TileCoord) string {
	return filepath.Join(s.cfg.CacheDir, fmt.Sprintf("%d/%d/%d.ddm", c.Level, c.Row, c.Col))
}

func (s *HTTPSource) loadFromDisk(c TileCoord) (*Tile, error) {
	raw, err := os.ReadFile(s.cachePath(c))
	if err != nil {
		return nil, err
	}
	return DecodeDDM(raw, s.cfg.NoDataValues)
}

func (s *HTTPSource) downloadTile(ctx context.Context, c TileCoord) (*Tile, error) {
	url := s.expandURL(c)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrTileNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return nil, &StatusError{Code: resp.StatusCode, URL: url}
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	t, err := DecodeDDM(raw, s.cfg.NoDataValues)
	if err != nil {
		return nil, err
	}
	path := s.cachePath(c)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *HTTPSource) getMem(key string) (*Tile, bool) {
	s.memMu.Lock()
	defer s.memMu.Unlock()
	return s.mem.get(key)
}

func (s *HTTPSource) putMem(key string, t *Tile) {
	s.memMu.Lock()
	defer s.memMu.Unlock()
	s.mem.put(key, t)
}
