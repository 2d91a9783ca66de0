package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"lpr-service/internal/domain/anpr"
)

type annotateFunc func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error)

// VisionEngine recognises text paragraphs with Google Cloud Vision.
type VisionEngine struct {
	annotate annotateFunc
	close    func() error
}

func NewVisionEngine(ctx context.Context) (*VisionEngine, error) {
	client, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create vision client: %w", err)
	}
	return &VisionEngine{
		annotate: func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
			return client.BatchAnnotateImages(ctx, req)
		},
		close: client.Close,
	}, nil
}

func (e *VisionEngine) Close() error {
	if e.close == nil {
		return nil
	}
	return e.close()
}

func (e *VisionEngine) Recognize(ctx context.Context, frame image.Image) ([]anpr.Fragment, error) {
	body, err := encodeJPEG(frame)
	if err != nil {
		return nil, err
	}

	resp, err := e.annotate(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: body},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_TEXT_DETECTION}},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("vision annotate: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, nil
	}

	r := resp.GetResponses()[0]
	if st := r.GetError(); st != nil && st.GetCode() != 0 {
		return nil, fmt.Errorf("vision annotate: %s", st.GetMessage())
	}
	return visionFragments(r.GetFullTextAnnotation()), nil
}

// visionFragments returns one fragment per paragraph.
func visionFragments(ann *visionpb.TextAnnotation) []anpr.Fragment {
	var fragments []anpr.Fragment
	for _, page := range ann.GetPages() {
		for _, block := range page.GetBlocks() {
			for _, para := range block.GetParagraphs() {
				words := make([]string, 0, len(para.GetWords()))
				for _, w := range para.GetWords() {
					var sb strings.Builder
					for _, s := range w.GetSymbols() {
						sb.WriteString(s.GetText())
					}
					words = append(words, sb.String())
				}
				text := strings.TrimSpace(strings.Join(words, " "))
				if text == "" {
					continue
				}

				pts := make([]anpr.Point, 0, 4)
				for _, v := range para.GetBoundingBox().GetVertices() {
					pts = append(pts, anpr.Point{X: float64(v.GetX()), Y: float64(v.GetY())})
				}
				poly, _ := polygonFromPoints(pts)

				fragments = append(fragments, anpr.Fragment{
					Text:       text,
					Polygon:    poly,
					Confidence: float64(para.GetConfidence()),
				})
			}
		}
	}
	return fragments
}
