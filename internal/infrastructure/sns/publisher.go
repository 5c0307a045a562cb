// Package sns delivers notifications by publishing them to an SNS topic.
// A downstream subscriber owns the final email delivery.
package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-auth-nosql/internal/application/notification"
	"github.com/go-auth-nosql/internal/config"
)

// maxSubjectLen is the SNS limit on the Subject parameter.
const maxSubjectLen = 100

type API interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Publisher struct {
	client   API
	topicARN string
}

func NewClient(ctx context.Context, cfg *config.Config) (*sns.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.SNSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config for SNS: %w", err)
	}
	clientOpts := []func(*sns.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return sns.NewFromConfig(awsCfg, clientOpts...), nil
}

func NewPublisher(client API, topicARN string) *Publisher {
	return &Publisher{client: client, topicARN: topicARN}
}

func (p *Publisher) Send(ctx context.Context, msg notification.Message) error {
	subject := msg.Subject
	if len(subject) > maxSubjectLen {
		subject = subject[:maxSubjectLen]
	}
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(msg.HTML),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"recipient": {DataType: aws.String("String"), StringValue: aws.String(msg.To)},
			"kind":      {DataType: aws.String("String"), StringValue: aws.String(string(msg.Kind))},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
