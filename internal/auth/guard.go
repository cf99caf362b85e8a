package auth

import (
	"context"

	"unlock-admin/pkg/logging"
)

// View 页面级视图标识
type View string

const (
	// ViewEntry 未认证入口视图
	ViewEntry View = "index"
	// ViewDashboard 普通用户仪表盘
	ViewDashboard View = "dashboard"
	// ViewAdmin 管理面板
	ViewAdmin View = "admin"
)

// Navigator 视图跳转能力（由界面层实现）
type Navigator interface {
	NavigateTo(view View)
}

// NavigatorFunc 函数适配器
type NavigatorFunc func(view View)

func (f NavigatorFunc) NavigateTo(view View) { f(view) }

// Guard 会话门禁
//
// 同步、带副作用的一次性检查，视图加载时调用一次；失败即单次跳转，
// 不重试。返回 false 时调用方必须中止后续初始化。
type Guard struct {
	store *Store
	nav   Navigator
	log   *logging.Logger
}

// NewGuard 创建会话门禁
func NewGuard(store *Store, nav Navigator, log *logging.Logger) *Guard {
	return &Guard{store: store, nav: nav, log: log}
}

// IsAuthenticated 认证标志有效且解析到激活用户
func (g *Guard) IsAuthenticated(ctx context.Context) bool {
	return g.store.IsAuthenticated(ctx)
}

// RequireAuth 未认证则跳转入口视图并返回 false
func (g *Guard) RequireAuth(ctx context.Context) bool {
	if g.IsAuthenticated(ctx) {
		return true
	}
	g.log.Debug("Unauthenticated, redirecting to entry view")
	g.nav.NavigateTo(ViewEntry)
	return false
}

// RequireAdmin 未认证跳转入口视图；已认证但非管理员角色跳转仪表盘
func (g *Guard) RequireAdmin(ctx context.Context) bool {
	if !g.IsAuthenticated(ctx) {
		g.nav.NavigateTo(ViewEntry)
		return false
	}
	if !g.store.IsAdmin(ctx) {
		g.log.Debug("Non-admin session, redirecting to dashboard")
		g.nav.NavigateTo(ViewDashboard)
		return false
	}
	return true
}
