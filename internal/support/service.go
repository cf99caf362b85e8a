// Package support 支持消息日志与自动回复
package support

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/containerd/errdefs"

	"unlock-admin/internal/shared/model"
	"unlock-admin/internal/shared/registry"
	"unlock-admin/pkg/logging"
)

// cannedReplies 自动回复的三条葡语固定文案
var cannedReplies = []string{
	"Recebemos sua mensagem! Nossa equipe responderá em breve.",
	"Estamos verificando sua solicitação. Por favor, aguarde.",
	"Sua mensagem foi registrada com sucesso.",
}

// DefaultReplyDelay 自动回复延迟
const DefaultReplyDelay = time.Second

// Service 支持消息服务
type Service struct {
	reg        registry.Registry
	log        *logging.Logger
	replyDelay time.Duration
	now        func() time.Time
	// schedule 延迟执行注入点；测试中替换为同步调用
	schedule func(d time.Duration, fn func())
	pick     func(n int) int
}

// Option 服务可选配置
type Option func(*Service)

// WithReplyDelay 覆盖自动回复延迟
func WithReplyDelay(d time.Duration) Option {
	return func(s *Service) { s.replyDelay = d }
}

// WithScheduler 覆盖延迟执行（测试用）
func WithScheduler(schedule func(d time.Duration, fn func())) Option {
	return func(s *Service) { s.schedule = schedule }
}

// WithClock 覆盖时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService 创建支持消息服务
func NewService(reg registry.Registry, log *logging.Logger, opts ...Option) *Service {
	s := &Service{
		reg:        reg,
		log:        log,
		replyDelay: DefaultReplyDelay,
		now:        time.Now,
		schedule:   func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
		pick:       rand.Intn,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send 追加一条用户消息并排一条自动回复
func (s *Service) Send(ctx context.Context, text string) (model.SupportMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.SupportMessage{}, fmt.Errorf("empty message: %w", errdefs.ErrInvalidArgument)
	}

	msg := model.SupportMessage{
		Sender:    model.SenderUser,
		Text:      text,
		Timestamp: model.EpochMillis(s.now()),
	}

	messages := append(s.List(ctx), msg)
	if err := registry.SetJSON(ctx, s.reg, model.KeySupportMessages, messages); err != nil {
		return model.SupportMessage{}, err
	}

	// 自动回复在延迟后追加；调度后的执行不随请求 ctx 取消
	replyCtx := context.WithoutCancel(ctx)
	s.schedule(s.replyDelay, func() { s.autoReply(replyCtx) })

	return msg, nil
}

// List 消息日志；缺失或损坏按空处理
func (s *Service) List(ctx context.Context) []model.SupportMessage {
	var messages []model.SupportMessage
	if err := registry.GetJSON(ctx, s.reg, model.KeySupportMessages, &messages); err != nil {
		if !errdefs.IsNotFound(err) {
			s.log.WithError(err).Warn("Support messages unreadable, treating as empty")
		}
		return nil
	}
	return messages
}

func (s *Service) autoReply(ctx context.Context) {
	reply := model.SupportMessage{
		Sender:    model.SenderSupport,
		Text:      cannedReplies[s.pick(len(cannedReplies))],
		Timestamp: model.EpochMillis(s.now()),
	}
	messages := append(s.List(ctx), reply)
	if err := registry.SetJSON(ctx, s.reg, model.KeySupportMessages, messages); err != nil {
		s.log.WithError(err).Warn("Failed to persist auto reply")
	}
}
