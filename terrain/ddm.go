package terrain

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DecodeDDM parses a DDM payload: a square grid of little-endian float32
// heights. Samples equal to one of noData become NaN.
func DecodeDDM(raw []byte, noData []float32) (*Tile, error) {
	if len(raw) == 0 || len(raw)%4 != 0 {
		return nil, fmt.Errorf("ddm: payload not multiple of float32: %d", len(raw))
	}
	n := len(raw) / 4
	gs := int(math.Round(math.Sqrt(float64(n))))
	if gs*gs != n {
		return nil, fmt.Errorf("ddm: non-square grid: n=%d sqrt=%d", n, gs)
	}

	vals := make([]float32, n)
	// Float32Array in the browser is little-endian.
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, vals); err != nil {
		return nil, err
	}
	if len(noData) > 0 {
		nan := float32(math.NaN())
		for i, v := range vals {
			for _, nd := range noData {
				if v == nd {
					vals[i] = nan
					break
				}
			}
		}
	}
	return &Tile{Width: gs, Height: gs, Values: vals}, nil
}

// EncodeDDM writes t in DDM layout. Only square tiles can be encoded.
func EncodeDDM(t *Tile) ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if t.Width != t.Height {
		return nil, fmt.Errorf("ddm: tile must be square, got %dx%d", t.Width, t.Height)
	}
	var buf bytes.Buffer
	buf.Grow(len(t.Values) * 4)
	if err := binary.Write(&buf, binary.LittleEndian, t.Values); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseNoData parses a comma separated list of no-data sentinels.
func ParseNoData(csv string) []float32 {
	if csv == "" {
		return nil
	}
	var out []float32
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if f, err := strconv.ParseFloat(p, 32); err == nil {
			out = append(out, float32(f))
		}
	}
	return out
}
