package render

import (
	"image"
	"image/color"
	imagedraw "image/draw"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

type pointF struct {
	X float64
	Y float64
}

func drawArrow(img *image.RGBA, from, to image.Rectangle, squareSize int, clr color.Color) {
	start := pointF{X: float64(from.Min.X + squareSize/2), Y: float64(from.Min.Y + squareSize/2)}
	end := pointF{X: float64(to.Min.X + squareSize/2), Y: float64(to.Min.Y + squareSize/2)}

	dx := end.X - start.X
	dy := end.Y - start.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	dirX, dirY := dx/length, dy/length
	perpX, perpY := -dirY, dirX

	baseLength := length - float64(squareSize)*0.45
	if baseLength < float64(squareSize)*0.35 {
		baseLength = length * 0.6
	}
	halfWidth := float64(squareSize) * 0.12
	headWidth := float64(squareSize) * 0.32

	base := pointF{X: start.X + dirX*baseLength, Y: start.Y + dirY*baseLength}
	offset := func(p pointF, w float64) pointF { return pointF{X: p.X + perpX*w, Y: p.Y + perpY*w} }

	fillQuad(img, offset(start, -halfWidth), offset(start, halfWidth), offset(base, halfWidth), offset(base, -halfWidth), clr)
	fillTriangleF(img, end, offset(base, -headWidth/2), offset(base, headWidth/2), clr)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 || face == nil {
		return trimmed
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}
	const ellipsis = "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}
	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	maxRadius := rect.Dx() / 2
	if r := rect.Dy() / 2; r < maxRadius {
		maxRadius = r
	}
	if radius > maxRadius {
		radius = maxRadius
	}
	fill := image.NewUniform(clr)
	if radius <= 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}
	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	for _, center := range []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	} {
		drawQuarterDisc(img, center, radius, rect, clr)
	}
}

// drawQuarterDisc fills the part of a corner disc that lies outside the
// already painted cross, so overlapping alpha is not applied twice.
func drawQuarterDisc(img *image.RGBA, center image.Point, radius int, rect image.Rectangle, clr color.Color) {
	inner := image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y).
		Union(image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius))
	r2 := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			p := image.Point{X: center.X + x, Y: center.Y + y}
			if x*x+y*y > r2 || !p.In(rect) || p.In(inner) {
				continue
			}
			blendPixel(img, p.X, p.Y, clr)
		}
	}
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if drawer == nil || text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	if radius <= 0 {
		blendPixel(img, center.X, center.Y, clr)
		return
	}
	r2 := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= r2 {
				blendPixel(img, center.X+x, center.Y+y, clr)
			}
		}
	}
}

// blendPixel composites clr over the pixel at (x, y) using straight alpha.
func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	srcA := float64(sa) / 65535.0
	dst := img.RGBAAt(x, y)
	dstA := float64(dst.A) / 255.0
	outA := srcA + dstA*(1-srcA)
	if outA <= 0 {
		img.SetRGBA(x, y, color.RGBA{})
		return
	}
	// RGBA() is alpha-premultiplied, as is image.RGBA storage.
	mix := func(s uint32, d uint8) uint8 {
		return floatToUint8(float64(s)/65535.0*255.0 + float64(d)*(1-srcA))
	}
	img.SetRGBA(x, y, color.RGBA{R: mix(sr, dst.R), G: mix(sg, dst.G), B: mix(sb, dst.B), A: floatToUint8(outA * 255.0)})
}

func floatToUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func fillQuad(img *image.RGBA, p0, p1, p2, p3 pointF, clr color.Color) {
	fillTriangleF(img, p0, p1, p2, clr)
	fillTriangleF(img, p0, p2, p3, clr)
}

func fillTriangleF(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if pointInTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

func pointInTriangle(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	return alpha >= 0 && beta >= 0 && 1-alpha-beta >= 0
}
