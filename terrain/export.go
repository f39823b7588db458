package terrain

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type ExportStats struct {
	Written int64
	Missing int64
}

// Export fetches coords from src and writes them to w with the given number
// of workers. Tiles the source does not have are skipped and counted.
func Export(ctx context.Context, src Source, w *MBTilesWriter, coords []TileCoord, workers int) (ExportStats, error) {
	var written, missing atomic.Int64
	if workers <= 0 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				log.Printf("%d/%d tiles", written.Load()+missing.Load(), len(coords))
			}
		}
	}()

	for _, c := range coords {
		g.Go(func() error {
			t, err := src.FetchTile(ctx, c)
			if errors.Is(err, ErrTileNotFound) {
				missing.Add(1)
				return nil
			}
			if err != nil {
				return err
			}
			if err := w.WriteTile(ctx, c, t); err != nil {
				return err
			}
			written.Add(1)
			return nil
		})
	}
	err := g.Wait()
	return ExportStats{Written: written.Load(), Missing: missing.Load()}, err
}
