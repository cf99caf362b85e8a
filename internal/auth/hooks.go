package auth

import (
	"context"

	"unlock-admin/internal/shared/model"
)

// Operation 凭据存储的可变更操作名
type Operation string

const (
	OpLogin          Operation = "login"
	OpLogout         Operation = "logout"
	OpRegister       Operation = "register"
	OpUpdateProfile  Operation = "updateProfile"
	OpChangePassword Operation = "changePassword"
)

// Hook 后置钩子：每个成功的可变更操作之后按注册顺序同步调用。
//
// 同步协调器通过钩子挂接"登录后立刻重算用户快照"之类的行为，
// 凭据存储自身不感知同步层。
// user 为操作涉及的用户记录快照，logout 时为 nil。
type Hook func(ctx context.Context, op Operation, user *model.UserRecord)

// AddHook 注册后置钩子；注册顺序即调用顺序
func (s *Store) AddHook(h Hook) {
	if h != nil {
		s.hooks = append(s.hooks, h)
	}
}

func (s *Store) fireHooks(ctx context.Context, op Operation, user *model.UserRecord) {
	for _, h := range s.hooks {
		h(ctx, op, user)
	}
}
