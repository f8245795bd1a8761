package capture

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/howlong/internal/burst"
	"github.com/ayusman/howlong/internal/detector"
	"github.com/ayusman/howlong/internal/session"
)

// JPEGQuality is the encoding quality of composite shots.
const JPEGQuality = 88

const (
	glowPad   = 8
	glowAlpha = 0.12
	labelPad  = 4
	labelFont = gocv.FontHersheySimplex
	labelSize = 0.4

	// The person mask is tinted with the level color at this opacity.
	maskAlpha     = 0.9
	maskThreshold = 127
)

// ErrEmptyFrame is returned when there is no frame to composite onto.
var ErrEmptyFrame = errors.New("empty frame")

// Composite renders the shareable shot: the mirrored camera frame scaled to
// the canvas, with every visible entity and link of out drawn on top.
// Entity boxes show a mirrored grayscale patch of the frame around their anchor.
// When mask is valid the person is tinted with the color of out.Level first.
// The caller must Close the returned Mat.
func Composite(frame *gocv.Mat, mask *detector.Mask, width, height int, out session.FrameOutput) (gocv.Mat, error) {
	if frame == nil || frame.Empty() {
		return gocv.NewMat(), ErrEmptyFrame
	}
	size := image.Pt(width, height)

	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(*frame, &scaled, size, 0, 0, gocv.InterpolationLinear)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(scaled, &gray, gocv.ColorBGRToGray)
	patches := gocv.NewMat()
	defer patches.Close()
	gocv.CvtColor(gray, &patches, gocv.ColorGrayToBGR)

	if mask.Valid() {
		if err := tintPerson(&scaled, mask, burst.LevelColor(out.Level)); err != nil {
			return gocv.NewMat(), err
		}
	}

	shot := gocv.NewMat()
	gocv.Flip(scaled, &shot, 1)

	bounds := image.Rect(0, 0, width, height)
	for _, e := range out.Entities {
		if e.Opacity <= 0 {
			continue
		}
		if err := drawEntity(&shot, patches, bounds, e); err != nil {
			shot.Close()
			return gocv.NewMat(), err
		}
	}

	if len(out.Links) > 0 {
		layer := shot.Clone()
		for _, l := range out.Links {
			c, err := burst.ParseHex(l.Color)
			if err != nil {
				layer.Close()
				shot.Close()
				return gocv.NewMat(), err
			}
			gocv.Line(&layer, pt(l.From.X, l.From.Y), pt(l.To.X, l.To.Y), c, 1)
		}
		gocv.AddWeighted(layer, out.Links[0].Opacity, shot, 1-out.Links[0].Opacity, 0, &shot)
		layer.Close()
	}

	return shot, nil
}

// tintPerson blends c over the pixels of m covered by mask. The mask is in
// frame orientation and is stretched to m.
func tintPerson(m *gocv.Mat, mask *detector.Mask, c color.RGBA) error {
	raw, err := gocv.NewMatFromBytes(mask.Height, mask.Width, gocv.MatTypeCV8U, mask.Data)
	if err != nil {
		return fmt.Errorf("mask: %w", err)
	}
	defer raw.Close()

	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(raw, &scaled, image.Pt(m.Cols(), m.Rows()), 0, 0, gocv.InterpolationLinear)
	sel := gocv.NewMat()
	defer sel.Close()
	gocv.Threshold(scaled, &sel, maskThreshold, 255, gocv.ThresholdBinary)

	fill := gocv.NewMatWithSizeFromScalar(scalar(c), m.Rows(), m.Cols(), m.Type())
	defer fill.Close()
	tinted := gocv.NewMat()
	defer tinted.Close()
	gocv.AddWeighted(fill, maskAlpha, *m, 1-maskAlpha, 0, &tinted)

	tinted.CopyToWithMask(m, sel)
	return nil
}

// drawEntity paints one entity on a copy of dst and blends it back at the
// entity's opacity.
func drawEntity(dst *gocv.Mat, patches gocv.Mat, bounds image.Rectangle, e session.EntityView) error {
	c, err := burst.ParseHex(e.Color)
	if err != nil {
		return err
	}
	text, err := burst.ParseHex(e.TextColor)
	if err != nil {
		return err
	}

	box := image.Rect(int(e.Box.X), int(e.Box.Y), int(e.Box.X+e.Box.W), int(e.Box.Y+e.Box.H)).Intersect(bounds)
	if box.Empty() {
		return nil
	}

	layer := dst.Clone()
	defer layer.Close()

	fillBlend(&layer, box.Inset(-glowPad).Intersect(bounds), c, glowAlpha)

	sx := int(max(0, e.Source.X-e.Box.W/2))
	sy := int(max(0, e.Source.Y-e.Box.H/2))
	src := image.Rectangle{
		Min: image.Pt(sx, sy),
		Max: image.Pt(sx+int(e.Box.W), sy+int(e.Box.H)),
	}.Intersect(bounds)
	if !src.Empty() {
		copyMirrored(&layer, patches, src, box)
	}

	gocv.Rectangle(&layer, box, c, 1)

	ts := gocv.GetTextSize(e.Label, labelFont, labelSize, 1)
	tag := image.Rect(box.Max.X-ts.X-2*labelPad, box.Max.Y-ts.Y-2*labelPad, box.Max.X, box.Max.Y).Intersect(bounds)
	gocv.Rectangle(&layer, tag, c, -1)
	gocv.PutText(&layer, e.Label, image.Pt(box.Max.X-ts.X-labelPad, box.Max.Y-labelPad), labelFont, labelSize, text, 1)

	gocv.AddWeighted(layer, e.Opacity, *dst, 1-e.Opacity, 0, dst)
	return nil
}

// copyMirrored writes the horizontally flipped src region of from into the dst region of to.
func copyMirrored(to *gocv.Mat, from gocv.Mat, src, dst image.Rectangle) {
	region := from.Region(src)
	defer region.Close()

	flipped := gocv.NewMat()
	defer flipped.Close()
	gocv.Flip(region, &flipped, 1)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(flipped, &resized, dst.Size(), 0, 0, gocv.InterpolationLinear)

	target := to.Region(dst)
	defer target.Close()
	resized.CopyTo(&target)
}

// fillBlend tints r of m with c at the given alpha.
func fillBlend(m *gocv.Mat, r image.Rectangle, c color.RGBA, alpha float64) {
	if r.Empty() {
		return
	}
	region := m.Region(r)
	defer region.Close()

	fill := gocv.NewMatWithSizeFromScalar(scalar(c), region.Rows(), region.Cols(), region.Type())
	defer fill.Close()
	gocv.AddWeighted(fill, alpha, region, 1-alpha, 0, &region)
}

func scalar(c color.RGBA) gocv.Scalar {
	return gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0)
}

func pt(x, y float64) image.Point {
	return image.Pt(int(x), int(y))
}

// EncodeJPEG encodes m as a JPEG of the given quality.
func EncodeJPEG(m gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, m, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
