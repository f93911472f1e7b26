package video

import (
	"VideoPresence/internal/attendance"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	boxThickness     = 2
	labelPadding     = 2
	annotatedQuality = 90
)

var boxPalette = []color.RGBA{
	{R: 255, G: 56, B: 56, A: 255},
	{R: 255, G: 157, B: 151, A: 255},
	{R: 255, G: 112, B: 31, A: 255},
	{R: 255, G: 178, B: 29, A: 255},
	{R: 207, G: 210, B: 49, A: 255},
	{R: 72, G: 249, B: 10, A: 255},
	{R: 146, G: 204, B: 23, A: 255},
	{R: 61, G: 219, B: 134, A: 255},
	{R: 26, G: 147, B: 52, A: 255},
	{R: 0, G: 212, B: 187, A: 255},
}

// Annotate decodes an image, draws the detection boxes on it and returns the
// result as JPEG.
func Annotate(data []byte, detections []attendance.Detection, labels map[int]string) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot decode image: %v", attendance.ErrSourceUnavailable, err)
	}

	canvas := DrawDetections(src, detections, labels)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: annotatedQuality}); err != nil {
		return nil, fmt.Errorf("encode annotated image: %w", err)
	}
	return buf.Bytes(), nil
}

// DrawDetections copies src and outlines every detection with a labelled box.
// Boxes are clipped to the image; a box wholly outside it is skipped.
func DrawDetections(src image.Image, detections []attendance.Detection, labels map[int]string) *image.RGBA {
	bounds := src.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, src, bounds.Min, draw.Src)

	for _, d := range detections {
		r := boxRect(d.Box, bounds)
		if r.Empty() {
			continue
		}
		c := ClassColor(d.ClassID)
		strokeRect(canvas, r, c)
		drawLabel(canvas, r, labelText(d, labels), c)
	}

	return canvas
}

func ClassColor(classID int) color.RGBA {
	if classID < 0 {
		classID = -classID
	}
	return boxPalette[classID%len(boxPalette)]
}

func boxRect(b attendance.Box, bounds image.Rectangle) image.Rectangle {
	r := image.Rect(
		int(math.Round(b.X1)), int(math.Round(b.Y1)),
		int(math.Round(b.X2)), int(math.Round(b.Y2)),
	)
	return r.Add(bounds.Min).Intersect(bounds)
}

func strokeRect(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	fill := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+boxThickness),
		image.Rect(r.Min.X, r.Max.Y-boxThickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+boxThickness, r.Max.Y),
		image.Rect(r.Max.X-boxThickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), fill, image.Point{}, draw.Src)
	}
}

// drawLabel puts the label on a filled strip above the box, or just inside
// its top edge when there is no room above.
func drawLabel(dst *image.RGBA, box image.Rectangle, text string, c color.RGBA) {
	face := basicfont.Face7x13
	metrics := face.Metrics()
	height := metrics.Height.Ceil() + labelPadding
	width := font.MeasureString(face, text).Ceil() + 2*labelPadding

	strip := image.Rect(box.Min.X, box.Min.Y-height, box.Min.X+width, box.Min.Y)
	if strip.Min.Y < dst.Bounds().Min.Y {
		strip = strip.Add(image.Pt(0, height))
	}
	strip = strip.Intersect(dst.Bounds())
	if strip.Empty() {
		return
	}
	draw.Draw(dst, strip, image.NewUniform(c), image.Point{}, draw.Src)

	drawer := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(strip.Min.X+labelPadding, strip.Min.Y+metrics.Ascent.Ceil()),
	}
	drawer.DrawString(text)
}

func labelText(d attendance.Detection, labels map[int]string) string {
	name, ok := labels[d.ClassID]
	if !ok {
		name = fmt.Sprintf("class %d", d.ClassID)
	}
	return fmt.Sprintf("%s %.2f", name, d.Confidence)
}
