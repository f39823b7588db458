package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/pavletto/relief/terrain"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write exaggerated tiles into an MBTiles archive",
	Long: `Fetch every tile covering a bounding box over a range of zoom levels,
exaggerate it and store it in a new MBTiles archive (format "ddm").
The archive can be served later with --mbtiles and --exaggeration 1.

Examples:
  relief export --bbox 7.5,46.3,8.2,46.7 --levels 8-12 --out alps.mbtiles
  relief export --bbox 55.0,24.9,55.5,25.3 --levels 10 --out dubai.mbtiles --workers 4`,
	Run: func(cmd *cobra.Command, args []string) {
		bboxStr, _ := cmd.Flags().GetString("bbox")
		levelsStr, _ := cmd.Flags().GetString("levels")
		out, _ := cmd.Flags().GetString("out")
		workers, _ := cmd.Flags().GetInt("workers")

		bound, err := parseBBox(bboxStr)
		if err != nil {
			log.Fatal(err)
		}
		minLevel, maxLevel, err := parseLevels(levelsStr)
		if err != nil {
			log.Fatal(err)
		}

		cfg := LoadConfig(cmd)
		ex, err := cfg.CreateExaggerator()
		if err != nil {
			log.Fatalf("Failed to create source: %v", err)
		}

		ctx := context.Background()
		if err := ex.Initialize(ctx); err != nil {
			log.Fatalf("Failed to initialize source: %v", err)
		}

		var coords []terrain.TileCoord
		for z := minLevel; z <= maxLevel; z++ {
			coords = append(coords, terrain.TilesInBounds(bound, z)...)
		}

		meta := map[string]string{
			"minzoom":      strconv.Itoa(minLevel),
			"maxzoom":      strconv.Itoa(maxLevel),
			"bounds":       fmt.Sprintf("%f,%f,%f,%f", bound.Min.X(), bound.Min.Y(), bound.Max.X(), bound.Max.Y()),
			"exaggeration": strconv.FormatFloat(ex.Exaggeration(), 'g', -1, 64),
		}

		log.Printf("Exporting %d tiles across zoom levels %d-%d", len(coords), minLevel, maxLevel)
		start := time.Now()
		stats, err := exportArchive(ctx, ex, out, meta, coords, workers)
		if err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		log.Printf("Export complete: %d written, %d missing, took %s", stats.Written, stats.Missing, time.Since(start))
	},
}

// exportArchive writes coords from src into a new archive at out. The
// archive is closed on every path, including a failed export.
func exportArchive(ctx context.Context, src terrain.Source, out string, meta map[string]string, coords []terrain.TileCoord, workers int) (terrain.ExportStats, error) {
	w, err := terrain.CreateMBTiles(out, meta)
	if err != nil {
		return terrain.ExportStats{}, fmt.Errorf("create %s: %w", out, err)
	}
	stats, err := terrain.Export(ctx, src, w, coords, workers)
	if cerr := w.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close %s: %w", out, cerr))
	}
	return stats, err
}

func parseBBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox must be minLon,minLat,maxLon,maxLat")
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("invalid bbox value %q", p)
		}
		v[i] = f
	}
	if v[0] > v[2] || v[1] > v[3] {
		return orb.Bound{}, fmt.Errorf("bbox min must not exceed max")
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}

// parseLevels accepts "MIN-MAX" or a single level.
func parseLevels(s string) (int, int, error) {
	parts := strings.Split(s, "-")
	if len(parts) == 1 {
		z, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid levels %q", s)
		}
		return z, z, nil
	}
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid levels %q, use MIN-MAX", s)
	}
	min, err1 := strconv.Atoi(parts[0])
	max, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || min > max || min < 0 {
		return 0, 0, fmt.Errorf("invalid levels %q, use MIN-MAX", s)
	}
	return min, max, nil
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("bbox", "", "Bounding box minLon,minLat,maxLon,maxLat (required)")
	exportCmd.Flags().String("levels", "0-7", "Zoom levels to export (MIN-MAX)")
	exportCmd.Flags().StringP("out", "o", "", "Output MBTiles file (required)")
	exportCmd.Flags().Int("workers", runtime.NumCPU(), "Number of parallel fetches")
	exportCmd.MarkFlagRequired("bbox")
	exportCmd.MarkFlagRequired("out")
}
