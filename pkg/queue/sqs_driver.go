package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSOptions configures NewSQSDriver. Key/Secret are optional; without them
// the default AWS credential chain is used. Endpoint targets LocalStack or
// ElasticMQ.
type SQSOptions struct {
	QueueURL string
	Region   string
	Endpoint string
	Key      string
	Secret   string
}

// sqsAPI is the subset of *sqs.Client the driver uses.
type sqsAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSDriver carries jobs on an AWS SQS queue. A message is deleted as soon
// as it is received, so delivery is at most once.
type SQSDriver struct {
	client   sqsAPI
	queueURL string
}

func NewSQSDriver(ctx context.Context, o SQSOptions) (*SQSDriver, error) {
	if o.QueueURL == "" {
		return nil, errors.New("queue/sqs: SQS_QUEUE_URL is not set")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(o.Region)}
	if o.Key != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.Key, o.Secret, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("queue/sqs: load config: %w", err)
	}

	client := sqs.NewFromConfig(cfg, func(so *sqs.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
		}
	})

	return &SQSDriver{client: client, queueURL: o.QueueURL}, nil
}

func (d *SQSDriver) Push(ctx context.Context, payload []byte) error {
	_, err := d.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(d.queueURL),
		MessageBody: aws.String(string(payload)),
	})
	if err != nil {
		return fmt.Errorf("queue/sqs: send: %w", err)
	}
	return nil
}

// Pop long-polls for up to ten seconds.
func (d *SQSDriver) Pop(ctx context.Context) ([]byte, error) {
	out, err := d.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(d.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     10,
		VisibilityTimeout:   60,
	})
	if err != nil {
		return nil, fmt.Errorf("queue/sqs: receive: %w", err)
	}
	if len(out.Messages) == 0 {
		return nil, nil
	}

	msg := out.Messages[0]
	if _, err := d.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(d.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	}); err != nil {
		return nil, fmt.Errorf("queue/sqs: delete: %w", err)
	}

	return []byte(aws.ToString(msg.Body)), nil
}
