package sns

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-auth-nosql/internal/application/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

func TestPublisher_Send(t *testing.T) {
	api := &mockAPI{}
	api.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return aws.ToString(in.TopicArn) == "arn:aws:sns:us-east-1:000000000000:auth" &&
			aws.ToString(in.Message) == "<p>hi</p>" &&
			aws.ToString(in.MessageAttributes["recipient"].StringValue) == "a@x.io" &&
			aws.ToString(in.MessageAttributes["kind"].StringValue) == "welcome"
	})).Return(&sns.PublishOutput{}, nil)

	p := NewPublisher(api, "arn:aws:sns:us-east-1:000000000000:auth")
	err := p.Send(context.Background(), notification.Message{Kind: notification.KindWelcome, To: "a@x.io", Subject: "Welcome", HTML: "<p>hi</p>"})
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestPublisher_TruncatesSubject(t *testing.T) {
	api := &mockAPI{}
	api.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return len(aws.ToString(in.Subject)) == maxSubjectLen
	})).Return(&sns.PublishOutput{}, nil)

	err := NewPublisher(api, "arn").Send(context.Background(), notification.Message{Subject: strings.Repeat("s", 150)})
	require.NoError(t, err)
}

func TestPublisher_Error(t *testing.T) {
	api := &mockAPI{}
	api.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	err := NewPublisher(api, "arn").Send(context.Background(), notification.Message{})
	assert.ErrorContains(t, err, "throttled")
}
