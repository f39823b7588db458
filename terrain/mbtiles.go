package terrain

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// MBTilesFormat is the metadata "format" value of archives holding DDM tiles.
const MBTilesFormat = "ddm"

// MBTilesSource serves DDM tiles stored in an MBTiles (sqlite) archive.
type MBTilesSource struct {
	path   string
	noData []float32

	db   *sql.DB
	meta map[string]string
}

func NewMBTilesSource(path string, noData []float32) *MBTilesSource {
	return &MBTilesSource{path: path, noData: noData}
}

func (s *MBTilesSource) Initialize(ctx context.Context) error {
	if _, err := os.Stat(s.path); err != nil {
		return err
	}
	db, err := sql.Open("sqlite3", "file:"+s.path+"?mode=ro")
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}

	rows, err := db.QueryContext(ctx, "SELECT name, value FROM metadata")
	if err != nil {
		db.Close()
		return fmt.Errorf("mbtiles: read metadata: %w", err)
	}
	defer rows.Close()
	meta := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			db.Close()
			return err
		}
		meta[name] = value
	}
	if err := rows.Err(); err != nil {
		db.Close()
		return err
	}
	if meta["format"] != MBTilesFormat {
		db.Close()
		return fmt.Errorf("mbtiles: format %q, want %q", meta["format"], MBTilesFormat)
	}

	s.db = db
	s.meta = meta
	return nil
}

func (s *MBTilesSource) Metadata() map[string]string { return s.meta }

func (s *MBTilesSource) FetchTile(ctx context.Context, c TileCoord) (*Tile, error) {
	if s.db == nil {
		return nil, fmt.Errorf("mbtiles: %s not initialized", s.path)
	}
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTile, c)
	}
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?",
		c.Level, c.Col, tmsRow(c)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTileNotFound, c)
	}
	if err != nil {
		return nil, err
	}
	return DecodeDDM(raw, s.noData)
}

func (s *MBTilesSource) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// MBTilesWriter creates an MBTiles archive of DDM tiles. WriteTile is safe
// for concurrent use.
type MBTilesWriter struct {
	mu   sync.Mutex
	db   *sql.DB
	stmt *sql.Stmt
}

// CreateMBTiles creates a new archive at path, replacing any existing file.
func CreateMBTiles(path string, meta map[string]string) (*MBTilesWriter, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE tiles (
			zoom_level INTEGER,
			tile_column INTEGER,
			tile_row INTEGER,
			tile_data BLOB,
			PRIMARY KEY (zoom_level, tile_column, tile_row)
		);
		CREATE TABLE metadata (
			name TEXT,
			value TEXT,
			PRIMARY KEY (name)
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	all := map[string]string{
		"name":    "relief",
		"type":    "baselayer",
		"version": "1.1",
	}
	for k, v := range meta {
		all[k] = v
	}
	all["format"] = MBTilesFormat
	for k, v := range all {
		if _, err := db.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", k, v); err != nil {
			db.Close()
			return nil, err
		}
	}

	stmt, err := db.Prepare("INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		db.Close()
		return nil, err
	}
	return &MBTilesWriter{db: db, stmt: stmt}, nil
}

func (w *MBTilesWriter) WriteTile(ctx context.Context, c TileCoord, t *Tile) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidTile, c)
	}
	raw, err := EncodeDDM(t)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.stmt.ExecContext(ctx, c.Level, c.Col, tmsRow(c), raw)
	return err
}

func (w *MBTilesWriter) Close() error {
	w.stmt.Close()
	return w.db.Close()
}

// tmsRow flips an XYZ row into the TMS row numbering MBTiles uses.
func tmsRow(c TileCoord) int {
	return (1 << c.Level) - 1 - c.Row
}
