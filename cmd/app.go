package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"gorm.io/gorm"

	"lpr-service/internal/config"
	"lpr-service/internal/db"
	"lpr-service/internal/notify"
	"lpr-service/internal/ocr"
	"lpr-service/internal/ocr/tesseract"
	"lpr-service/internal/pipeline"
	"lpr-service/internal/recognition"
	"lpr-service/internal/repository"
	"lpr-service/internal/snapshot"
	"lpr-service/internal/video"
)

func openStore() (*gorm.DB, *repository.Store, error) {
	conn, err := db.Open(cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}
	return conn, repository.NewStore(conn), nil
}

func loadAWS(ctx context.Context, region string) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

func newEngine(ctx context.Context, c config.OCRConfig) (ocr.Engine, io.Closer, error) {
	var (
		engine ocr.Engine
		closer io.Closer
	)
	switch c.Engine {
	case "tesseract":
		e, err := tesseract.New(tesseract.Options{Languages: c.Languages, Whitelist: c.Whitelist})
		if err != nil {
			return nil, nil, err
		}
		engine, closer = e, e
	case "rekognition":
		awsCfg, err := loadAWS(ctx, c.AWSRegion)
		if err != nil {
			return nil, nil, err
		}
		engine, closer = ocr.NewRekognitionEngineFromConfig(awsCfg), closerFunc(func() error { return nil })
	case "vision":
		e, err := ocr.NewVisionEngine(ctx)
		if err != nil {
			return nil, nil, err
		}
		engine, closer = e, e
	default:
		return nil, nil, fmt.Errorf("unknown ocr engine %q", c.Engine)
	}

	log.Info().Str("engine", c.Engine).Dur("timeout", c.Timeout).Msg("ocr engine ready")
	return ocr.WithTimeout(engine, c.Timeout), closer, nil
}

// addCloudNotifiers appends the SQS and IoT publishers that are configured.
func addCloudNotifiers(ctx context.Context, m *notify.Multi, c config.EventsConfig) error {
	if c.SQSQueueURL == "" && c.IoTEndpoint == "" {
		return nil
	}
	awsCfg, err := loadAWS(ctx, c.AWSRegion)
	if err != nil {
		return err
	}
	if c.SQSQueueURL != "" {
		m.Add(notify.NewSQSPublisher(sqs.NewFromConfig(awsCfg), c.SQSQueueURL))
		log.Info().Str("queue", c.SQSQueueURL).Msg("publishing detections to sqs")
	}
	if c.IoTEndpoint != "" {
		m.Add(notify.NewIoTPublisher(notify.NewIoTClient(awsCfg, c.IoTEndpoint), c.IoTTopic))
		log.Info().Str("topic", c.IoTTopic).Msg("publishing detections to aws iot")
	}
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

type camera struct {
	processor *pipeline.Processor
	closers   []io.Closer
}

func (c *camera) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i].Close())
	}
	return errors.Join(errs...)
}

// newCamera opens the video source and OCR engine and builds the processor.
func newCamera(ctx context.Context, sink pipeline.Sink, notifier pipeline.Notifier, live *pipeline.LiveState, renderer pipeline.Renderer) (*camera, error) {
	cam := &camera{}

	source, err := video.Open(cfg.Camera, log)
	if err != nil {
		return nil, err
	}
	cam.closers = append(cam.closers, source)

	engine, closer, err := newEngine(ctx, cfg.OCR)
	if err != nil {
		cam.Close()
		return nil, err
	}
	cam.closers = append(cam.closers, closer)

	deps := pipeline.Deps{
		Source:   source,
		Engine:   engine,
		Sink:     sink,
		Notifier: notifier,
		Live:     live,
		Renderer: renderer,
	}
	if cfg.Snapshots.Enabled {
		store, err := snapshot.New(snapshot.Options{
			KnownDir:   cfg.Snapshots.KnownDir,
			UnknownDir: cfg.Snapshots.UnknownDir,
			Margin:     cfg.Snapshots.Margin,
			Quality:    cfg.Snapshots.Quality,
		})
		if err != nil {
			cam.Close()
			return nil, err
		}
		deps.Snapshots = store
	}

	cam.processor = pipeline.NewProcessor(pipeline.Config{
		Thresholds: recognition.Thresholds{
			CarFloor:  cfg.Recognition.ConfidenceFloorCar,
			MotoFloor: cfg.Recognition.ConfidenceFloorMoto,
			Cooldown:  cfg.Recognition.Cooldown,
		},
		FrameStride: cfg.Recognition.FrameStride,
		Origin:      cfg.Camera.Origin(),
	}, deps, log)
	return cam, nil
}
