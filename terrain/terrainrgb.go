package terrain

import (
	"image"
	"image/color"
	"io"
	"math"

	"github.com/chai2010/webp"
)

// Terrain-RGB: height = -10000 + (R*65536 + G*256 + B) * 0.1
const (
	rgbBase  = -10000.0
	rgbScale = 0.1
	rgbMax   = 1<<24 - 1
)

// TerrainRGB encodes t as a terrain-RGB image. Heights outside the
// representable range are clamped; no-data encodes as 0 m.
func TerrainRGB(t *Tile) (*image.NRGBA, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, t.Width, t.Height))
	for row := 0; row < t.Height; row++ {
		for col := 0; col < t.Width; col++ {
			img.SetNRGBA(col, row, heightToRGB(t.at(row, col)))
		}
	}
	return img, nil
}

// HeightFromRGB decodes one terrain-RGB pixel.
func HeightFromRGB(c color.NRGBA) float64 {
	v := int(c.R)<<16 | int(c.G)<<8 | int(c.B)
	return rgbBase + float64(v)*rgbScale
}

func heightToRGB(h float32) color.NRGBA {
	if isNoData(h) {
		h = 0
	}
	v := int(math.Round((float64(h) - rgbBase) / rgbScale))
	v = clamp(v, 0, rgbMax)
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// EncodeWebP writes t as a lossless terrain-RGB WebP image.
func EncodeWebP(w io.Writer, t *Tile) error {
	img, err := TerrainRGB(t)
	if err != nil {
		return err
	}
	return webp.Encode(w, img, &webp.Options{Lossless: true})
}
