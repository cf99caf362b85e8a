// Package support 支持消息测试
package support

import (
	"context"
	"testing"
	"time"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unlock-admin/internal/shared/model"
	"unlock-admin/internal/shared/registry"
	"unlock-admin/pkg/logging"
)

var testClock = func() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

// newTestService 同步调度的测试服务：自动回复在 Send 返回前执行完
func newTestService(t *testing.T) (*Service, registry.Registry) {
	t.Helper()

	reg := registry.NewHub().Attach("test")
	s := NewService(reg, logging.Default("support-test"),
		WithClock(testClock),
		WithScheduler(func(_ time.Duration, fn func()) { fn() }),
	)
	return s, reg
}

func TestSend_AppendsMessageAndAutoReply(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	msg, err := s.Send(ctx, "Meu aparelho não desbloqueou")
	require.NoError(t, err)
	assert.Equal(t, model.SenderUser, msg.Sender)
	assert.Equal(t, "Meu aparelho não desbloqueou", msg.Text)
	assert.Equal(t, model.EpochMillis(testClock()), msg.Timestamp)

	messages := s.List(ctx)
	require.Len(t, messages, 2)
	assert.Equal(t, model.SenderUser, messages[0].Sender)
	assert.Equal(t, model.SenderSupport, messages[1].Sender)
	assert.Contains(t, cannedReplies, messages[1].Text)
}

func TestSend_TrimsWhitespace(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	msg, err := s.Send(ctx, "  olá  ")
	require.NoError(t, err)
	assert.Equal(t, "olá", msg.Text)
}

func TestSend_RejectsEmpty(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := s.Send(ctx, text)
		require.Error(t, err)
		assert.True(t, errdefs.IsInvalidArgument(err))
	}
	assert.Empty(t, s.List(ctx))
}

func TestSend_PreservesHistory(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	_, err := s.Send(ctx, "primeira")
	require.NoError(t, err)
	_, err = s.Send(ctx, "segunda")
	require.NoError(t, err)

	messages := s.List(ctx)
	require.Len(t, messages, 4)
	assert.Equal(t, "primeira", messages[0].Text)
	assert.Equal(t, "segunda", messages[2].Text)
}

// TestList_CorruptRecovered 损坏的消息日志按空处理
func TestList_CorruptRecovered(t *testing.T) {
	ctx := context.Background()
	s, reg := newTestService(t)

	require.NoError(t, reg.Set(ctx, model.KeySupportMessages, "{corrupt"))
	assert.Nil(t, s.List(ctx))
}

// TestSend_DelayedReply 真实调度下回复在延迟后出现
func TestSend_DelayedReply(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewHub().Attach("test")
	s := NewService(reg, logging.Default("support-test"),
		WithClock(testClock),
		WithReplyDelay(10*time.Millisecond),
	)

	_, err := s.Send(ctx, "teste")
	require.NoError(t, err)
	assert.Len(t, s.List(ctx), 1)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(s.List(ctx)) == 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("auto reply never appended")
}
