package terrain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"
)

type IntersectionResponse struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Ground float64 `json:"ground"`
	Hit    bool    `json:"hit"`
}

type TileMeta struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

type HeightResponse struct {
	Lat          float64  `json:"lat"`
	Lon          float64  `json:"lon"`
	Height       float64  `json:"height"`
	Tile         TileMeta `json:"tile"`
	GridSize     int      `json:"grid_size"`
	Exaggeration float64  `json:"exaggeration,omitempty"`
}

// Server exposes a Source over HTTP.
type Server struct {
	Source      Source
	DefaultZoom int
}

// Routes registers the handlers on a new mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tiles/{z}/{y}/{file}", s.HandleTile)
	mux.HandleFunc("GET /height", s.HandleHeight)
	mux.HandleFunc("GET /intersection", s.HandleIntersection)
	mux.HandleFunc("GET /health", s.HandleHealth)
	return mux
}

// HandleTile serves /tiles/{z}/{y}/{x}.ddm and /tiles/{z}/{y}/{x}.webp.
func (s *Server) HandleTile(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	ext := path.Ext(file)

	z, errZ := strconv.Atoi(r.PathValue("z"))
	y, errY := strconv.Atoi(r.PathValue("y"))
	x, errX := strconv.Atoi(strings.TrimSuffix(file, ext))
	if errZ != nil || errY != nil || errX != nil {
		http.Error(w, "invalid tile path", http.StatusBadRequest)
		return
	}
	if ext != ".ddm" && ext != ".webp" {
		http.Error(w, "unsupported tile format "+ext, http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	t, err := s.Source.FetchTile(ctx, TileCoord{Level: z, Row: y, Col: x})
	if err != nil {
		http.Error(w, err.Error(), tileErrorStatus(err))
		return
	}

	var buf bytes.Buffer
	switch ext {
	case ".ddm":
		raw, err := EncodeDDM(t)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		buf.Write(raw)
		w.Header().Set("Content-Type", "application/octet-stream")
	case ".webp":
		if err := EncodeWebP(&buf, t); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/webp")
	}
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

func tileErrorStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidTile):
		return http.StatusBadRequest
	case errors.Is(err, ErrTileNotFound), errors.Is(err, ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func (s *Server) HandleIntersection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	camLat, err := strconv.ParseFloat(q.Get("cam_lat"), 64)
	if err != nil {
		http.Error(w, "invalid cam_lat", http.StatusBadRequest)
		return
	}
	camLon, err := strconv.ParseFloat(q.Get("cam_lon"), 64)
	if err != nil {
		http.Error(w, "invalid cam_lon", http.StatusBadRequest)
		return
	}
	camAlt, err := strconv.ParseFloat(q.Get("cam_alt"), 64)
	if err != nil {
		http.Error(w, "invalid cam_alt", http.StatusBadRequest)
		return
	}

	quatStr := q.Get("quat")
	if quatStr == "" {
		http.Error(w, "quat parameter required (4 comma-separated values)", http.StatusBadRequest)
		return
	}
	quat, err := parseQuat(quatStr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := IntersectionRequest{
		CamLon:       camLon,
		CamLat:       camLat,
		CamAlt:       camAlt,
		EllipsoidAlt: q.Get("alt_ref") == "ellipsoid",
		Quat:         quat,
		Zoom:         queryInt(q.Get("z"), s.DefaultZoom),
		Step:         queryFloat(q.Get("step"), 1.0),
		MaxDist:      queryFloat(q.Get("max_dist"), 5000.0),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := SearchIntersection(ctx, s.Source, s.DefaultZoom, req)
	if err != nil {
		http.Error(w, "intersection search failed: "+err.Error(), tileErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(IntersectionResponse{
		Lat:    result.Lat,
		Lon:    result.Lon,
		Ground: result.Ground,
		Hit:    result.Hit,
	})
}

func (s *Server) HandleHeight(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		http.Error(w, "invalid lat", http.StatusBadRequest)
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		http.Error(w, "invalid lon", http.StatusBadRequest)
		return
	}

	req := HeightRequest{
		Lat:  lat,
		Lon:  lon,
		Zoom: queryInt(q.Get("z"), s.DefaultZoom),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := PickHeight(ctx, s.Source, s.DefaultZoom, req)
	if err != nil {
		http.Error(w, err.Error(), tileErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(HeightResponse{
		Lat:          result.Lat,
		Lon:          result.Lon,
		Height:       result.Height,
		Tile:         TileMeta{Z: result.Meta.Z, X: result.Meta.X, Y: result.Meta.Y},
		GridSize:     result.Meta.GridSize,
		Exaggeration: result.Meta.Exaggeration,
	})
}

// HandleHealth reports 503 until the source has initialized.
func (s *Server) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	if st, ok := s.Source.(interface{ State() State }); ok && st.State() != Ready {
		http.Error(w, st.State().String(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func parseQuat(s string) ([4]float64, error) {
	var quat [4]float64
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return quat, errors.New("quat must have exactly 4 values")
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return quat, errors.New("quat must have exactly 4 values")
		}
		quat[i] = f
	}
	return quat, nil
}

func queryInt(v string, d int) int {
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func queryFloat(v string, d float64) float64 {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return d
}
