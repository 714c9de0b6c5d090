package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed assets/*.svg
var glyphFiles embed.FS

type glyphKey struct {
	name string
	fill string
	size int
}

var (
	glyphCache   = map[glyphKey]image.Image{}
	glyphCacheMu sync.RWMutex
)

// glyph rasterises assets/<name>.svg at size x size. A non-empty fill replaces the FILL
// placeholder, which is how one king drawing serves both colors.
func glyph(name, fill string, size int) (image.Image, error) {
	key := glyphKey{name: name, fill: fill, size: size}

	glyphCacheMu.RLock()
	if img, ok := glyphCache[key]; ok {
		glyphCacheMu.RUnlock()
		return img, nil
	}
	glyphCacheMu.RUnlock()

	data, err := glyphFiles.ReadFile("assets/" + name + ".svg")
	if err != nil {
		return nil, fmt.Errorf("read glyph %s: %w", name, err)
	}
	if fill != "" {
		data = bytes.ReplaceAll(data, []byte("FILL"), []byte(fill))
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse glyph %s: %w", name, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	glyphCacheMu.Lock()
	glyphCache[key] = img
	glyphCacheMu.Unlock()
	return img, nil
}
