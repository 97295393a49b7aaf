// Package qrc wraps the barcode collaborators used by the otpcli tool:
// scanning QR symbols out of raster images, and rendering a text payload as
// a QR code in PNG, SVG, or terminal text-art form.
package qrc

import (
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for scanned input
	"image/png"
	"io"
	"path/filepath"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/multi/qrcode"
)

// A Symbol is one QR symbol decoded from a scanned image.
type Symbol struct {
	Text        string // the decoded payload
	Orientation int    // rotation in degrees, when the decoder reports it
}

// Scan decodes every QR symbol in the raster image read from r. An image
// that contains no symbols yields an empty slice, not an error.
func Scan(r io.Reader) ([]Symbol, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("prepare image: %w", err)
	}
	results, err := zxqr.NewQRCodeMultiReader().DecodeMultiple(bmp, nil)
	if err != nil {
		if _, ok := err.(gozxing.NotFoundException); ok {
			return nil, nil
		}
		return nil, fmt.Errorf("scan image: %w", err)
	}
	out := make([]Symbol, len(results))
	for i, res := range results {
		out[i] = Symbol{Text: res.GetText()}
		if deg, ok := res.GetResultMetadata()[gozxing.ResultMetadataType_ORIENTATION].(int); ok {
			out[i].Orientation = deg
		}
	}
	return out, nil
}

// Format selects a rendering for QR output.
type Format int

const (
	Text Format = iota // half-block text art for terminals
	PNG
	SVG
)

// ParseFormat maps an output path to a rendering format: "-" (or an empty
// path) means text art on stdout; otherwise the extension must be .png or
// .svg.
func ParseFormat(path string) (Format, error) {
	if path == "" || path == "-" {
		return Text, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return PNG, nil
	case ".svg":
		return SVG, nil
	}
	return 0, fmt.Errorf("unsupported output extension %q (use .png or .svg)", filepath.Ext(path))
}

// quiet is the border, in modules, around text and SVG renderings.
const quiet = 4

// Encode renders text as a QR code on w in the given format. For PNG output,
// scale is the module size in pixels; other formats ignore it.
func Encode(w io.Writer, text string, format Format, scale int) error {
	code, err := qr.Encode(text, qr.M, qr.Auto)
	if err != nil {
		return fmt.Errorf("encode QR: %w", err)
	}
	switch format {
	case PNG:
		return encodePNG(w, code, scale)
	case SVG:
		return encodeSVG(w, code)
	case Text:
		return encodeText(w, code)
	}
	return fmt.Errorf("unknown format %d", format)
}

func encodePNG(w io.Writer, code barcode.Barcode, scale int) error {
	if scale < 1 {
		scale = 4
	}
	size := (code.Bounds().Dx() + 2*quiet) * scale
	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return fmt.Errorf("scale QR: %w", err)
	}
	return png.Encode(w, scaled)
}

func encodeSVG(w io.Writer, code barcode.Barcode) error {
	b := code.Bounds()
	n := b.Dx()
	canvas := svg.New(w)
	canvas.Start(n+2*quiet, n+2*quiet)
	canvas.Rect(0, 0, n+2*quiet, n+2*quiet, "fill:white")
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if darkAt(code, b.Min.X+x, b.Min.Y+y) {
				canvas.Rect(x+quiet, y+quiet, 1, 1, "fill:black")
			}
		}
	}
	canvas.End()
	return nil
}

// encodeText renders two module rows per output line using half-block
// glyphs. Light modules are drawn as filled blocks so that the code scans
// correctly on dark terminal backgrounds.
func encodeText(w io.Writer, code barcode.Barcode) error {
	b := code.Bounds()
	n := b.Dx()
	total := n + 2*quiet
	lightAt := func(x, y int) bool {
		if x < quiet || y < quiet || x >= quiet+n || y >= quiet+n {
			return true // the quiet zone
		}
		return !darkAt(code, b.Min.X+x-quiet, b.Min.Y+y-quiet)
	}

	var sb strings.Builder
	for y := 0; y < total; y += 2 {
		for x := 0; x < total; x++ {
			top := lightAt(x, y)
			bottom := y+1 >= total || lightAt(x, y+1)
			switch {
			case top && bottom:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bottom:
				sb.WriteRune('▄')
			default:
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func darkAt(img image.Image, x, y int) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	return r+g+b == 0
}
