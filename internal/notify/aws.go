package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"lpr-service/internal/domain/anpr"
)

type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends each event as a JSON message to a queue.
type SQSPublisher struct {
	client   SQSAPI
	queueURL string
}

func NewSQSPublisher(client SQSAPI, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL}
}

func (p *SQSPublisher) Notify(ctx context.Context, ev anpr.DetectionEvent) error {
	body, err := encode(ev)
	if err != nil {
		return err
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"plate":    {DataType: aws.String("String"), StringValue: aws.String(ev.Plate)},
			"category": {DataType: aws.String("String"), StringValue: aws.String(string(ev.Category))},
		},
	})
	if err != nil {
		return fmt.Errorf("sqs send %s: %w", ev.Plate, err)
	}
	return nil
}

type IoTAPI interface {
	Publish(ctx context.Context, params *iotdataplane.PublishInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error)
}

// IoTPublisher publishes each event to an AWS IoT MQTT topic.
type IoTPublisher struct {
	client IoTAPI
	topic  string
}

func NewIoTPublisher(client IoTAPI, topic string) *IoTPublisher {
	return &IoTPublisher{client: client, topic: topic}
}

func (p *IoTPublisher) Notify(ctx context.Context, ev anpr.DetectionEvent) error {
	body, err := encode(ev)
	if err != nil {
		return err
	}
	_, err = p.client.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(p.topic),
		Qos:     1,
		Payload: body,
	})
	if err != nil {
		return fmt.Errorf("iot publish %s: %w", p.topic, err)
	}
	return nil
}

// NewIoTClient builds a data-plane client for the account endpoint.
func NewIoTClient(cfg aws.Config, endpoint string) *iotdataplane.Client {
	return iotdataplane.NewFromConfig(cfg, func(o *iotdataplane.Options) {
		if endpoint == "" {
			return
		}
		if !strings.HasPrefix(endpoint, "https://") && !strings.HasPrefix(endpoint, "http://") {
			endpoint = "https://" + endpoint
		}
		o.BaseEndpoint = aws.String(endpoint)
	})
}
