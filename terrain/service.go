package terrain

import (
	"context"
	"fmt"

	"github.com/pavletto/relief/internal/raycast"
)

// IntersectionRequest contains parameters for raycast intersection search
type IntersectionRequest struct {
	CamLon       float64    // Camera longitude
	CamLat       float64    // Camera latitude
	CamAlt       float64    // Camera altitude
	EllipsoidAlt bool       // CamAlt is GPS/WGS84 ellipsoid height
	Quat         [4]float64 // Quaternion [w, x, y, z]
	Zoom         int        // Tile zoom level
	Step         float64    // Step size for raycast
	MaxDist      float64    // Maximum distance to search
}

// IntersectionResult contains the result of intersection search
type IntersectionResult struct {
	Lon    float64 // Intersection longitude
	Lat    float64 // Intersection latitude
	Ground float64 // Ground elevation at intersection
	Hit    bool    // Whether intersection was found
}

// HeightRequest contains parameters for height lookup
type HeightRequest struct {
	Lat  float64 // Latitude
	Lon  float64 // Longitude
	Zoom int     // Tile zoom level
}

// HeightResult contains the result of height lookup
type HeightResult struct {
	Lat    float64 // Requested latitude
	Lon    float64 // Requested longitude
	Height float64 // Height at the location
	Meta   Meta    // Metadata about the tile used
}

// SearchIntersection casts the camera ray against the surface of src.
// When src is an Exaggerator the ray meets the exaggerated terrain.
func SearchIntersection(ctx context.Context, src Source, defaultZoom int, req IntersectionRequest) (IntersectionResult, error) {
	if src == nil {
		return IntersectionResult{}, fmt.Errorf("source is nil")
	}
	if err := ctx.Err(); err != nil {
		return IntersectionResult{}, err
	}

	if req.Zoom <= 0 {
		req.Zoom = defaultZoom
	}
	if req.Step <= 0 {
		req.Step = 1.0
	}
	if req.MaxDist <= 0 {
		req.MaxDist = 5000.0
	}

	sampler := &Sampler{Source: src, Level: req.Zoom}

	res, err := raycast.Cast(ctx, raycast.Params{
		CamLon:       req.CamLon,
		CamLat:       req.CamLat,
		CamAlt:       req.CamAlt,
		Quat:         req.Quat,
		Step:         req.Step,
		MaxDist:      req.MaxDist,
		EllipsoidAlt: req.EllipsoidAlt,
		DEM:          sampler,
	})
	if err != nil {
		return IntersectionResult{}, err
	}

	return IntersectionResult{
		Lon:    res.Lon,
		Lat:    res.Lat,
		Ground: res.Ground,
		Hit:    res.Hit,
	}, nil
}

// PickHeight retrieves elevation at a specific location
func PickHeight(ctx context.Context, src Source, defaultZoom int, req HeightRequest) (HeightResult, error) {
	if src == nil {
		return HeightResult{}, fmt.Errorf("source is nil")
	}

	zoom := req.Zoom
	if zoom <= 0 {
		zoom = defaultZoom
	}

	sampler := &Sampler{Source: src, Level: zoom}
	h, meta, err := sampler.HeightAt(ctx, req.Lat, req.Lon)
	if err != nil {
		return HeightResult{}, fmt.Errorf("height lookup failed: %w", err)
	}

	return HeightResult{
		Lat:    req.Lat,
		Lon:    req.Lon,
		Height: h,
		Meta:   meta,
	}, nil
}
