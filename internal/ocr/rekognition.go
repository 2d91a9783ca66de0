package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"lpr-service/internal/domain/anpr"
)

// TextDetector is the subset of the Rekognition client used here.
type TextDetector interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// RekognitionEngine recognises text lines with AWS Rekognition DetectText.
type RekognitionEngine struct {
	client TextDetector
}

func NewRekognitionEngine(client TextDetector) *RekognitionEngine {
	return &RekognitionEngine{client: client}
}

func NewRekognitionEngineFromConfig(cfg aws.Config) *RekognitionEngine {
	return NewRekognitionEngine(rekognition.NewFromConfig(cfg))
}

func (e *RekognitionEngine) Recognize(ctx context.Context, frame image.Image) ([]anpr.Fragment, error) {
	body, err := encodeJPEG(frame)
	if err != nil {
		return nil, err
	}

	out, err := e.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: body},
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition detect text: %w", err)
	}

	b := frame.Bounds()
	return rekognitionFragments(out.TextDetections, float64(b.Dx()), float64(b.Dy())), nil
}

// rekognitionFragments keeps LINE detections and scales their relative
// geometry to pixels.
func rekognitionFragments(detections []types.TextDetection, width, height float64) []anpr.Fragment {
	var fragments []anpr.Fragment
	for _, d := range detections {
		if d.Type != types.TextTypesLine || d.DetectedText == nil {
			continue
		}
		text := strings.TrimSpace(*d.DetectedText)
		if text == "" {
			continue
		}

		f := anpr.Fragment{
			Text:       text,
			Confidence: clampConfidence(float64(aws.ToFloat32(d.Confidence))),
		}
		if d.Geometry != nil {
			f.Polygon = rekognitionPolygon(d.Geometry, width, height)
		}
		fragments = append(fragments, f)
	}
	return fragments
}

func rekognitionPolygon(g *types.Geometry, width, height float64) anpr.Polygon {
	pts := make([]anpr.Point, 0, len(g.Polygon))
	for _, p := range g.Polygon {
		pts = append(pts, anpr.Point{
			X: float64(aws.ToFloat32(p.X)) * width,
			Y: float64(aws.ToFloat32(p.Y)) * height,
		})
	}
	if poly, ok := polygonFromPoints(pts); ok {
		return poly
	}

	if bb := g.BoundingBox; bb != nil {
		left := float64(aws.ToFloat32(bb.Left)) * width
		top := float64(aws.ToFloat32(bb.Top)) * height
		return anpr.RectPolygon(left, top,
			left+float64(aws.ToFloat32(bb.Width))*width,
			top+float64(aws.ToFloat32(bb.Height))*height)
	}
	return anpr.Polygon{}
}
