package video

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"lpr-service/internal/pipeline"
)

var (
	colorSaved  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	colorOther  = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	colorHeader = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorShade  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// Renderer draws detections on frames and encodes them as JPEG.
type Renderer struct {
	quality int
}

func NewRenderer(quality int) *Renderer {
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &Renderer{quality: quality}
}

func (r *Renderer) Render(frame image.Image, o pipeline.Overlay) ([]byte, error) {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	for _, a := range o.Annotations {
		c := colorOther
		if a.Highlighted() {
			c = colorSaved
		}
		poly := a.Detection.Anchor
		for i := range poly {
			next := poly[(i+1)%len(poly)]
			gocv.Line(&mat,
				image.Pt(int(poly[i].X), int(poly[i].Y)),
				image.Pt(int(next.X), int(next.Y)),
				c, 2)
		}
		minX, minY, _, _ := poly.Bounds()
		gocv.PutText(&mat, a.Label(), image.Pt(int(minX), max(int(minY)-10, 20)),
			gocv.FontHersheySimplex, 0.7, c, 2)
	}

	gocv.Rectangle(&mat, image.Rect(0, 0, mat.Cols(), 40), colorShade, -1)
	gocv.PutText(&mat, o.Header(), image.Pt(10, 28), gocv.FontHersheySimplex, 0.7, colorHeader, 2)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, r.quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()
	return bytes.Clone(buf.GetBytes()), nil
}
