package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/pavletto/relief/terrain"
	"github.com/spf13/cobra"
)

const (
	readTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
	idleTimeout  = 120 * time.Second
)

func getenv(k, d string) string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	return v
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP API server",
	Long: `Start an HTTP server that provides REST API endpoints for:
  - /tiles/{z}/{y}/{x}.ddm  - exaggerated DDM tile (little-endian float32 grid)
  - /tiles/{z}/{y}/{x}.webp - exaggerated terrain-RGB tile
  - /height - Get exaggerated terrain elevation at a location
  - /intersection - Find intersection with the exaggerated terrain via raycast
  - /health - 200 once the terrain source is ready, 503 before

Configuration can be provided via environment variables or command-line flags.
Flags take precedence over environment variables.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := LoadConfig(cmd)

		ex, err := cfg.CreateExaggerator()
		if err != nil {
			log.Fatal(err)
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := ex.Initialize(ctx); err != nil {
				log.Fatalf("terrain source failed to initialize: %v", err)
			}
			log.Printf("terrain source %s", ex.State())
		}()

		s := &terrain.Server{Source: ex, DefaultZoom: cfg.DefaultZoom}

		addr := getenv("ADDR", ":8080")
		if addrFlag, _ := cmd.Flags().GetString("addr"); cmd.Flags().Changed("addr") {
			addr = addrFlag
		}

		srv := &http.Server{
			Addr:         addr,
			Handler:      s.Routes(),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		}

		log.Printf("Starting server on %s", addr)
		log.Printf("  Exaggeration: %gx", ex.Exaggeration())
		if cfg.MBTiles != "" {
			log.Printf("  MBTiles: %s", cfg.MBTiles)
		} else {
			log.Printf("  Cache dir: %s", cfg.CacheDir)
			log.Printf("  Download: %v", cfg.URLTemplate != "")
		}
		log.Fatal(srv.ListenAndServe())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
}
