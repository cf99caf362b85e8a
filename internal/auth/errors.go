// Package auth 凭据存储与会话门禁
//
// 失败以结构化 Result 返回而不是向上抛出；调用方展示 Message 字段后
// 继续运行。错误按 containerd/errdefs 哨兵分类，便于调用方做类型判断。
package auth

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"

	"unlock-admin/internal/shared/model"
)

// 领域错误分类
var (
	// ErrInvalidCredentials 登录时用户名/密码/激活状态不完全匹配
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", errdefs.ErrUnauthenticated)
	// ErrUsernameTooShort 注册校验：用户名少于 3 个字符
	ErrUsernameTooShort = fmt.Errorf("username must be at least 3 characters: %w", errdefs.ErrInvalidArgument)
	// ErrPasswordTooShort 注册校验：密码少于 4 个字符
	ErrPasswordTooShort = fmt.Errorf("password must be at least 4 characters: %w", errdefs.ErrInvalidArgument)
	// ErrUsernameTaken 用户名已存在（精确匹配）
	ErrUsernameTaken = fmt.Errorf("username already exists: %w", errdefs.ErrAlreadyExists)
	// ErrEmailTaken 邮箱已注册（精确匹配）
	ErrEmailTaken = fmt.Errorf("email already registered: %w", errdefs.ErrAlreadyExists)
	// ErrWrongPassword 改密时旧密码不匹配
	ErrWrongPassword = fmt.Errorf("current password is incorrect: %w", errdefs.ErrPermissionDenied)
	// ErrUserNotFound 会话指向的用户记录不存在
	ErrUserNotFound = fmt.Errorf("user not found: %w", errdefs.ErrNotFound)
)

// uiMessages 展示给界面层的葡语消息文案
var uiMessages = []struct {
	err     error
	message string
}{
	{ErrInvalidCredentials, "Credenciais inválidas"},
	{ErrUsernameTooShort, "Usuário deve ter no mínimo 3 caracteres"},
	{ErrPasswordTooShort, "Senha deve ter no mínimo 4 caracteres"},
	{ErrUsernameTaken, "Usuário já existe"},
	{ErrEmailTaken, "Email já cadastrado"},
	{ErrWrongPassword, "Senha atual incorreta"},
	{ErrUserNotFound, "Usuário não encontrado"},
}

// UIMessage 错误对应的界面消息
func UIMessage(err error) string {
	for _, m := range uiMessages {
		if errors.Is(err, m.err) {
			return m.message
		}
	}
	return "Erro interno"
}

// Result 凭据存储操作的结构化结果
type Result struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	User    *model.UserRecord `json:"user,omitempty"`
	Err     error             `json:"-"`
}

func success(u *model.UserRecord) Result {
	return Result{Success: true, User: u}
}

func failure(err error) Result {
	return Result{Message: UIMessage(err), Err: err}
}
