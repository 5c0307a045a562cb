package notification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/go-auth-nosql/internal/domain"
	"github.com/go-auth-nosql/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type mockSender struct{ mock.Mock }

func (m *mockSender) Send(ctx context.Context, msg Message) error {
	return m.Called(ctx, msg).Error(0)
}

type mapSource map[string]string

func (s mapSource) Fetch(_ context.Context, name string) (string, error) {
	if body, ok := s[name]; ok {
		return body, nil
	}
	return "", fmt.Errorf("template %s: %w", name, domain.ErrNotFound)
}

type failingSource struct{}

func (failingSource) Fetch(context.Context, string) (string, error) {
	return "", errors.New("access denied")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newService(t *testing.T, sender Sender, src TemplateSource) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), ServiceDeps{
		Sender:    sender,
		Templates: src,
		ClientURL: "https://app.example.com",
		Logger:    quietLogger(),
	})
	require.NoError(t, err)
	return svc
}

func TestNewService_RequiresSender(t *testing.T) {
	_, err := NewService(context.Background(), ServiceDeps{})
	assert.Error(t, err)
}

func TestSendVerification_RendersCode(t *testing.T) {
	s := &mockSender{}
	s.On("Send", mock.Anything, mock.MatchedBy(func(m Message) bool {
		return m.Kind == KindVerification && m.To == "a@x.io" &&
			m.Subject == "Verify your email" && assert.Contains(t, m.HTML, "123456")
	})).Return(nil)

	require.NoError(t, newService(t, s, nil).SendVerification(context.Background(), "a@x.io", "123456"))
	s.AssertExpectations(t)
}

func TestSendPasswordReset_LinkUsesClientURL(t *testing.T) {
	s := &mockSender{}
	s.On("Send", mock.Anything, mock.MatchedBy(func(m Message) bool {
		return assert.Contains(t, m.HTML, "https://app.example.com/reset-password/abc123")
	})).Return(nil)

	require.NoError(t, newService(t, s, nil).SendPasswordReset(context.Background(), "a@x.io", "abc123"))
	s.AssertExpectations(t)
}

func TestSendWelcome_EscapesName(t *testing.T) {
	s := &mockSender{}
	s.On("Send", mock.Anything, mock.MatchedBy(func(m Message) bool {
		return assert.Contains(t, m.HTML, "&lt;b&gt;Al&lt;/b&gt;")
	})).Return(nil)

	require.NoError(t, newService(t, s, nil).SendWelcome(context.Background(), "a@x.io", "<b>Al</b>"))
}

func TestTemplateOverride(t *testing.T) {
	s := &mockSender{}
	s.On("Send", mock.Anything, mock.Anything).Return(nil)

	svc := newService(t, s, mapSource{"reset_success": "<p>custom {{.Email}}</p>"})
	require.NoError(t, svc.SendResetSuccess(context.Background(), "a@x.io"))

	msg := s.Calls[0].Arguments.Get(1).(Message)
	assert.Contains(t, msg.HTML, "custom a@x.io")
}

func TestTemplateOverride_FetchFailureFallsBack(t *testing.T) {
	s := &mockSender{}
	s.On("Send", mock.Anything, mock.Anything).Return(nil)

	svc := newService(t, s, failingSource{})
	require.NoError(t, svc.SendResetSuccess(context.Background(), "a@x.io"))
	msg := s.Calls[0].Arguments.Get(1).(Message)
	assert.Contains(t, msg.HTML, "successfully reset")
}

func TestTemplateOverride_BadTemplate(t *testing.T) {
	_, err := NewService(context.Background(), ServiceDeps{
		Sender:    &mockSender{},
		Templates: mapSource{"welcome": "{{.Broken"},
		Logger:    quietLogger(),
	})
	assert.Error(t, err)
}

func TestSend_FailureIsDependencyAndCounted(t *testing.T) {
	failed := observability.NotificationsTotal.WithLabelValues(string(KindWelcome), "failure")
	before := testutil.ToFloat64(failed)

	s := &mockSender{}
	s.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	err := newService(t, s, nil).SendWelcome(context.Background(), "a@x.io", "Al")
	assert.ErrorIs(t, err, domain.ErrDependency)
	assert.Equal(t, before+1, testutil.ToFloat64(failed))
}

func TestSend_DeadlineApplied(t *testing.T) {
	s := &mockSender{}
	s.On("Send", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		dl, ok := ctx.Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(2*time.Second), dl, time.Second)
	})

	svc, err := NewService(context.Background(), ServiceDeps{Sender: s, Timeout: 2 * time.Second, Logger: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, svc.SendResetSuccess(context.Background(), "a@x.io"))
	s.AssertExpectations(t)
}

func TestSend_SurvivesCallerCancellation(t *testing.T) {
	s := &mockSender{}
	s.On("Send", mock.Anything, mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, newService(t, s, nil).SendResetSuccess(ctx, "a@x.io"))
}

func TestSend_LimiterTimesOut(t *testing.T) {
	s := &mockSender{}
	svc, err := NewService(context.Background(), ServiceDeps{
		Sender:  s,
		Limiter: rate.NewLimiter(rate.Every(time.Hour), 1),
		Timeout: 50 * time.Millisecond,
		Logger:  quietLogger(),
	})
	require.NoError(t, err)
	s.On("Send", mock.Anything, mock.Anything).Return(nil).Once()

	require.NoError(t, svc.SendResetSuccess(context.Background(), "a@x.io"))
	err = svc.SendResetSuccess(context.Background(), "a@x.io")
	assert.ErrorIs(t, err, domain.ErrDependency)
	s.AssertNumberOfCalls(t, "Send", 1)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	ls := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, ls.Send(context.Background(), Message{Kind: KindWelcome, To: "a@x.io", Subject: "Welcome", HTML: "<p>secret</p>"}))
	assert.Contains(t, buf.String(), "a@x.io")
	assert.NotContains(t, buf.String(), "secret")
}
