package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/jason-s-yu/ageofchess/internal/board"
)

// Options control the preview size.
type Options struct {
	SquareSize int
	// Labels draws file letters below the board and rank numbers to its left.
	Labels bool
}

// DefaultOptions renders 48px squares with coordinates.
var DefaultOptions = Options{SquareSize: 48, Labels: true}

const margin = 20

var (
	dirtColor       = color.RGBA{196, 160, 108, 255}
	grassColor      = color.RGBA{128, 174, 86, 255}
	backgroundColor = color.RGBA{36, 38, 48, 255}
	gridColor       = color.NRGBA{0, 0, 0, 40}
	labelColor      = color.RGBA{220, 224, 236, 255}
	whiteOwnerColor = color.NRGBA{250, 250, 250, 200}
	blackOwnerColor = color.NRGBA{20, 20, 20, 200}
	whitePieceFill  = "#f5f5f5"
	blackPieceFill  = "#202020"
)

// PNG renders m as a PNG image.
func PNG(ctx context.Context, m *board.Map, opts Options) ([]byte, error) {
	img, err := Image(ctx, m, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Image draws terrain, mine ownership and occupants of m. Rank 1 is at the bottom.
func Image(ctx context.Context, m *board.Map, opts Options) (*image.RGBA, error) {
	if m == nil {
		return nil, fmt.Errorf("map is nil")
	}
	if opts.SquareSize <= 0 {
		opts.SquareSize = DefaultOptions.SquareSize
	}
	sq := opts.SquareSize
	img := image.NewRGBA(image.Rect(0, 0, m.Width*sq+2*margin, m.Height*sq+2*margin))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	for i := range m.Squares {
		if i%m.Width == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		if err := drawSquare(img, m, &m.Squares[i], sq); err != nil {
			return nil, err
		}
	}
	if opts.Labels {
		drawCoordinates(img, m, sq)
	}
	return img, nil
}

// squareRect is the pixel area of board square (x, y).
func squareRect(m *board.Map, x, y, size int) image.Rectangle {
	left := margin + x*size
	top := margin + (m.Height-1-y)*size
	return image.Rect(left, top, left+size, top+size)
}

func drawSquare(img *image.RGBA, m *board.Map, s *board.Square, size int) error {
	r := squareRect(m, s.X, s.Y, size)
	base := dirtColor
	if s.Type.Base() == board.Grass {
		base = grassColor
	}
	draw.Draw(img, r, image.NewUniform(base), image.Point{}, draw.Src)
	drawOutline(img, r, gridColor, 1)

	var feature string
	switch {
	case s.Type.IsMine():
		feature = "mine"
	case s.Type.IsRocks():
		feature = "rocks"
	case s.Type.IsTrees():
		feature = "trees"
	}
	if feature != "" {
		if err := drawGlyph(img, r, feature, ""); err != nil {
			return err
		}
	}
	switch s.MineOwner {
	case board.White:
		drawOutline(img, r.Inset(2), whiteOwnerColor, 3)
	case board.Black:
		drawOutline(img, r.Inset(2), blackOwnerColor, 3)
	}

	switch occ := s.Occupant; {
	case occ.Kind == board.Treasure:
		return drawGlyph(img, r.Inset(size/8), "treasure", "")
	case occ.Kind == board.Flag:
		return drawGlyph(img, r.Inset(size/8), "flag", "")
	case occ.Kind == board.King:
		return drawGlyph(img, r.Inset(size/10), "king", pieceFill(occ.Color))
	case occ.IsPiece():
		drawPieceLetter(img, r, occ)
	}
	return nil
}

func pieceFill(c board.Color) string {
	if c == board.Black {
		return blackPieceFill
	}
	return whitePieceFill
}

func drawGlyph(img *image.RGBA, r image.Rectangle, name, fill string) error {
	g, err := glyph(name, fill, r.Dx())
	if err != nil {
		return err
	}
	draw.Draw(img, r, g, image.Point{}, draw.Over)
	return nil
}

// drawPieceLetter marks a bought piece with its notation letter on a disc of its color.
func drawPieceLetter(img *image.RGBA, r image.Rectangle, occ board.Occupant) {
	center := image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
	radius := r.Dx() * 3 / 8
	disc, ink := color.RGBA{245, 245, 245, 255}, color.RGBA{20, 20, 20, 255}
	if occ.Color == board.Black {
		disc, ink = ink, disc
	}
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= radius*radius {
				img.Set(center.X+x, center.Y+y, disc)
			}
		}
	}
	letter := map[board.Kind]string{
		board.Queen: "Q", board.Rook: "R", board.Bishop: "B", board.Knight: "N", board.Pawn: "P",
	}[occ.Kind]
	d := &font.Drawer{Dst: img, Src: image.NewUniform(ink), Face: basicfont.Face7x13}
	drawCenteredText(d, letter, center.X, center.Y+basicfont.Face7x13.Ascent/2)
}

func drawOutline(img *image.RGBA, r image.Rectangle, c color.Color, width int) {
	src := image.NewUniform(c)
	draw.Draw(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), src, image.Point{}, draw.Over)
	draw.Draw(img, image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), src, image.Point{}, draw.Over)
	draw.Draw(img, image.Rect(r.Min.X, r.Min.Y+width, r.Min.X+width, r.Max.Y-width), src, image.Point{}, draw.Over)
	draw.Draw(img, image.Rect(r.Max.X-width, r.Min.Y+width, r.Max.X, r.Max.Y-width), src, image.Point{}, draw.Over)
}

func drawCoordinates(img *image.RGBA, m *board.Map, size int) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(labelColor), Face: face}
	ascent := face.Metrics().Ascent.Ceil()
	for x := 0; x < m.Width; x++ {
		r := squareRect(m, x, 0, size)
		drawCenteredText(d, string(rune('a'+x)), (r.Min.X+r.Max.X)/2, r.Max.Y+ascent+2)
	}
	for y := 0; y < m.Height; y++ {
		r := squareRect(m, 0, y, size)
		drawCenteredText(d, strconv.Itoa(y+1), margin/2, (r.Min.Y+r.Max.Y)/2+ascent/2)
	}
}

func drawCenteredText(d *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := d.MeasureString(text).Round()
	d.Dot = fixed.P(centerX-width/2, baseline)
	d.DrawString(text)
}
