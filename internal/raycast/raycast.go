// Package raycast marches a camera ray over an elevation surface until it
// meets the ground.
package raycast

import (
	"context"
	"math"

	"github.com/westphae/geomag/pkg/egm96"
)

const RadiusOfEarth = 6378137.0

const (
	defaultStep    = 1.0
	defaultMaxDist = 3000.0
	refineSteps    = 20
)

// ElevationSource returns ground height (MSL) at a coordinate.
type ElevationSource interface {
	Height(ctx context.Context, lat, lon float64) (float64, error)
}

type Params struct {
	CamLon, CamLat, CamAlt float64
	Quat                   [4]float64 // [w,x,y,z], NED attitude
	DEM                    ElevationSource
	Step, MaxDist          float64

	// EllipsoidAlt marks CamAlt as WGS84 ellipsoid height (GPS); it is
	// converted to MSL through EGM96 before comparing with the DEM.
	EllipsoidAlt bool
}

type Result struct {
	Lon, Lat float64
	Ground   float64 // ground height at the hit, or ray altitude on a miss
	Hit      bool
}

// Forward rotates the body X axis by q and returns it in NED.
func Forward(q [4]float64) [3]float64 {
	w, x, y, z := q[0], q[1], q[2], q[3]
	n := math.Sqrt(w*w + x*x + y*y + z*z)
	if n < 1e-9 {
		return [3]float64{0, 0, 1}
	}
	w, x, y, z = w/n, x/n, y/n, z/n

	// first column of the rotation matrix
	return [3]float64{
		1 - 2*(y*y+z*z),
		2 * (x*y + w*z),
		2 * (x*z - w*y),
	}
}

type point struct{ lat, lon, alt float64 }

func mid(a, b point) point {
	return point{0.5 * (a.lat + b.lat), 0.5 * (a.lon + b.lon), 0.5 * (a.alt + b.alt)}
}

// Cast marches along the ray in Step metres until it is at or below the
// ground, then refines the crossing by bisection. The first DEM error or
// context error ends the march and is returned.
func Cast(ctx context.Context, p Params) (Result, error) {
	if p.DEM == nil {
		return Result{}, nil
	}
	if p.Step <= 0 {
		p.Step = defaultStep
	}
	if p.MaxDist <= 0 {
		p.MaxDist = defaultMaxDist
	}

	alt := p.CamAlt
	if p.EllipsoidAlt {
		loc := egm96.NewLocationGeodetic(p.CamLat, p.CamLon, p.CamAlt)
		if h, err := loc.HeightAboveMSL(); err == nil {
			alt = h
		}
	}

	dir := Forward(p.Quat)
	north, east, down := dir[0]*p.Step, dir[1]*p.Step, dir[2]*p.Step

	cur := point{p.CamLat, p.CamLon, alt}
	prev := cur
	for dist := 0.0; dist <= p.MaxDist && math.Abs(cur.lat) <= 85; dist += p.Step {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		g, err := p.DEM.Height(ctx, cur.lat, cur.lon)
		if err != nil {
			return Result{}, err
		}
		if cur.alt <= g {
			for i := 0; i < refineSteps; i++ {
				m := mid(prev, cur)
				mg, err := p.DEM.Height(ctx, m.lat, m.lon)
				if err != nil {
					return Result{}, err
				}
				if m.alt > mg {
					prev = m
				} else {
					cur = m
				}
			}
			g, err := p.DEM.Height(ctx, cur.lat, cur.lon)
			if err != nil {
				return Result{}, err
			}
			return Result{Lon: cur.lon, Lat: cur.lat, Ground: g, Hit: true}, nil
		}

		prev = cur
		cur.alt -= down
		cur.lat += north / RadiusOfEarth * 180 / math.Pi
		cur.lon += east / (RadiusOfEarth * math.Cos(cur.lat*math.Pi/180)) * 180 / math.Pi
		cur.lon = wrapLon(cur.lon)
	}
	return Result{Lon: cur.lon, Lat: cur.lat, Ground: cur.alt}, nil
}

func wrapLon(lon float64) float64 {
	if lon > 180 {
		return lon - 360
	}
	if lon < -180 {
		return lon + 360
	}
	return lon
}
