// Package auth 凭据存储与会话门禁测试
package auth

import (
	"context"
	"errors"
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

// newTestStore 内存注册表上的测试 Store
func newTestStore(t *testing.T, opts ...Option) (*Store, registry.Registry) {
	t.Helper()

	reg := registry.NewHub().Attach("test")
	opts = append([]Option{WithClock(testClock)}, opts...)
	s := NewStore(reg, logging.Default("auth-test"), opts...)
	require.NoError(t, s.Init(context.Background()))
	return s, reg
}

func TestInit_SeedsDefaultUsers(t *testing.T) {
	ctx := context.Background()
	s, reg := newTestStore(t)

	var users []model.UserRecord
	require.NoError(t, registry.GetJSON(ctx, reg, model.KeyUsers, &users))
	require.Len(t, users, 2)
	assert.Equal(t, "admin", users[0].Username)
	assert.Equal(t, "usuario", users[1].Username)

	// 幂等：再次 Init 不覆盖已有集合
	users = append(users, model.UserRecord{ID: "extra", Username: "extra"})
	require.NoError(t, registry.SetJSON(ctx, reg, model.KeyUsers, users))
	require.NoError(t, s.Init(ctx))

	var after []model.UserRecord
	require.NoError(t, registry.GetJSON(ctx, reg, model.KeyUsers, &after))
	assert.Len(t, after, 3)
}

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	s, reg := newTestStore(t)

	res := s.Login(ctx, "admin", "admin123")
	require.True(t, res.Success)
	require.NotNil(t, res.User)
	assert.Equal(t, "admin001", res.User.ID)
	assert.Equal(t, model.UserRoleSuperAdmin, res.User.Role)
	assert.Equal(t, model.EpochMillis(testClock()), res.User.LastLogin)

	// 会话键已写入
	flag, err := reg.Get(ctx, model.KeyAuthenticated)
	require.NoError(t, err)
	assert.Equal(t, "true", flag)
	username, err := reg.Get(ctx, model.KeyCurrentUser)
	require.NoError(t, err)
	assert.Equal(t, "admin", username)

	// lastLogin 已持久化
	var users []model.UserRecord
	require.NoError(t, registry.GetJSON(ctx, reg, model.KeyUsers, &users))
	assert.Equal(t, model.EpochMillis(testClock()), users[0].LastLogin)
}

func TestLogin_Failures(t *testing.T) {
	ctx := context.Background()
	s, reg := newTestStore(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "admin", "wrong"},
		{"unknown user", "nobody", "admin123"},
		{"case sensitive username", "Admin", "admin123"},
		{"case sensitive password", "admin", "ADMIN123"},
		{"empty credentials", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Login(ctx, tt.username, tt.password)
			assert.False(t, res.Success)
			assert.Equal(t, "Credenciais inválidas", res.Message)
			assert.True(t, errors.Is(res.Err, ErrInvalidCredentials))

			// 失败不建立会话
			_, err := reg.Get(ctx, model.KeyAuthenticated)
			assert.True(t, errdefs.IsNotFound(err))
		})
	}
}

func TestLogin_InactiveUserRejected(t *testing.T) {
	ctx := context.Background()
	s, reg := newTestStore(t)

	var users []model.UserRecord
	require.NoError(t, registry.GetJSON(ctx, reg, model.KeyUsers, &users))
	users[1].Active = false
	require.NoError(t, registry.SetJSON(ctx, reg, model.KeyUsers, users))

	res := s.Login(ctx, "usuario", "usuario123")
	assert.False(t, res.Success)
	assert.True(t, errors.Is(res.Err, ErrInvalidCredentials))
}

// TestLogin_SeedsWhenMissing 集合缺失时登录路径先补种子（场景：冷启动直接登录）
func TestLogin_SeedsWhenMissing(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewHub().Attach("test")
	s := NewStore(reg, logging.Default("auth-test"), WithClock(testClock))

	res := s.Login(ctx, "admin", "admin123")
	assert.True(t, res.Success)
}

// TestLogin_CorruptUsersRecovered users_db 损坏按空集合处理，不 panic
func TestLogin_CorruptUsersRecovered(t *testing.T) {
	ctx := context.Background()
	s, reg := newTestStore(t)

	require.NoError(t, reg.Set(ctx, model.KeyUsers, "{corrupt"))

	res := s.Login(ctx, "admin", "admin123")
	assert.False(t, res.Success)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	var navigated []View
	nav := NavigatorFunc(func(v View) { navigated = append(navigated, v) })

	reg := registry.NewHub().Attach("test")
	s := NewStore(reg, logging.Default("auth-test"), WithClock(testClock), WithNavigator(nav))
	require.NoError(t, s.Init(ctx))

	require.True(t, s.Login(ctx, "admin", "admin123").Success)
	require.True(t, s.IsAuthenticated(ctx))

	s.Logout(ctx)

	assert.False(t, s.IsAuthenticated(ctx))
	_, err := reg.Get(ctx, model.KeyAuthenticated)
	assert.True(t, errdefs.IsNotFound(err))
	_, err = reg.Get(ctx, model.KeyCurrentUser)
	assert.True(t, errdefs.IsNotFound(err))
	assert.Equal(t, []View{ViewEntry}, navigated)

	// 未登录状态下登出同样安全
	s.Logout(ctx)
	assert.Equal(t, []View{ViewEntry, ViewEntry}, navigated)
}

func TestRegister_Success(t *testing.T) {
	ctx := context.Background()
	s, reg := newTestStore(t, WithIDGenerator(func() string { return "user_fixed" }))

	res := s.Register(ctx, RegisterInput{
		Username: "novato",
		Email:    "novato@teste.com",
		Password: "senha123",
	})
	require.True(t, res.Success)
	require.NotNil(t, res.User)
	assert.Equal(t, "user_fixed", res.User.ID)
	assert.Equal(t, "novato", res.User.Username)
	// fullName 缺省取用户名
	assert.Equal(t, "novato", res.User.FullName)
	assert.Equal(t, model.UserRoleUser, res.User.Role)
	assert.True(t, res.User.Active)
	assert.Equal(t, []string{model.PermissionBasic}, res.User.Permissions)

	// 注册即登录
	assert.True(t, s.IsAuthenticated(ctx))
	username, err := reg.Get(ctx, model.KeyCurrentUser)
	require.NoError(t, err)
	assert.Equal(t, "novato", username)
}

func TestRegister_ValidationOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
		wantMsg string
	}{
		{
			"username too short",
			RegisterInput{Username: "ab", Password: "1234"},
			ErrUsernameTooShort,
			"Usuário deve ter no mínimo 3 caracteres",
		},
		{
			// 用户名过短先于密码过短报告
			"username checked before password",
			RegisterInput{Username: "ab", Password: "x"},
			ErrUsernameTooShort,
			"Usuário deve ter no mínimo 3 caracteres",
		},
		{
			"password too short",
			RegisterInput{Username: "abc", Password: "123"},
			ErrPasswordTooShort,
			"Senha deve ter no mínimo 4 caracteres",
		},
		{
			"username taken",
			RegisterInput{Username: "admin", Password: "1234"},
			ErrUsernameTaken,
			"Usuário já existe",
		},
		{
			"email taken",
			RegisterInput{Username: "outro", Email: "admin@jpcellfrp.com", Password: "1234"},
			ErrEmailTaken,
			"Email já cadastrado",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Register(ctx, tt.input)
			assert.False(t, res.Success)
			assert.True(t, errors.Is(res.Err, tt.wantErr))
			assert.Equal(t, tt.wantMsg, res.Message)
		})
	}
}

// TestRegister_EmptyEmailNotChecked 空邮箱不参与重复检查
func TestRegister_EmptyEmailNotChecked(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	first := s.Register(ctx, RegisterInput{Username: "semmail1", Password: "1234"})
	require.True(t, first.Success)
	second := s.Register(ctx, RegisterInput{Username: "semmail2", Password: "1234"})
	assert.True(t, second.Success)
}

func TestCurrentUser_Guest(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	// 未登录返回访客投影，从不为 nil
	guest := s.CurrentUser(ctx)
	require.NotNil(t, guest)
	assert.Equal(t, "Usuário", guest.FullName)
	assert.False(t, guest.Active)
	assert.False(t, s.IsAuthenticated(ctx))
}

func TestCurrentUser_StripsPassword(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.True(t, s.Login(ctx, "admin", "admin123").Success)
	u := s.CurrentUser(ctx)
	assert.Equal(t, "admin", u.Username)
	assert.Empty(t, u.Password)
}

// TestCurrentUser_DanglingSession 会话指向已删除的用户时退化为访客投影
func TestCurrentUser_DanglingSession(t *testing.T) {
	ctx := context.Background()
	s, reg := newTestStore(t)

	require.True(t, s.Login(ctx, "usuario", "usuario123").Success)
	require.NoError(t, reg.Set(ctx, model.KeyUsers, "[]"))

	u := s.CurrentUser(ctx)
	require.NotNil(t, u)
	assert.Equal(t, "usuario", u.Username)
	assert.False(t, u.Active)
	assert.False(t, s.IsAuthenticated(ctx))
}

func TestHasPermission(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	// superadmin 恒通过
	require.True(t, s.Login(ctx, "admin", "admin123").Success)
	assert.True(t, s.HasPermission(ctx, "basic"))
	assert.True(t, s.HasPermission(ctx, "qualquer_coisa"))

	// 普通用户只看集合成员
	require.True(t, s.Login(ctx, "usuario", "usuario123").Success)
	assert.True(t, s.HasPermission(ctx, "basic"))
	assert.False(t, s.HasPermission(ctx, "frp_unlock"))

	// 未登录访客只有 basic
	s.Logout(ctx)
	assert.True(t, s.HasPermission(ctx, "basic"))
	assert.False(t, s.HasPermission(ctx, "frp_unlock"))
}

func TestIsAdmin(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	assert.False(t, s.IsAdmin(ctx))

	require.True(t, s.Login(ctx, "admin", "admin123").Success)
	assert.True(t, s.IsAdmin(ctx))

	require.True(t, s.Login(ctx, "usuario", "usuario123").Success)
	assert.False(t, s.IsAdmin(ctx))
}

func TestIsPremium(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.True(t, s.Login(ctx, "admin", "admin123").Success)
	assert.True(t, s.IsPremium(ctx))

	require.True(t, s.Login(ctx, "usuario", "usuario123").Success)
	assert.False(t, s.IsPremium(ctx))
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	s, reg := newTestStore(t)

	require.True(t, s.Login(ctx, "usuario", "usuario123").Success)

	res := s.UpdateProfile(ctx, ProfileUpdate{FullName: "Novo Nome", Phone: "(11) 77777-7777"})
	require.True(t, res.Success)
	assert.Equal(t, "Novo Nome", res.User.FullName)
	// 空字段不变更
	assert.Equal(t, "usuario@teste.com", res.User.Email)

	var users []model.UserRecord
	require.NoError(t, registry.GetJSON(ctx, reg, model.KeyUsers, &users))
	assert.Equal(t, "Novo Nome", users[1].FullName)
	assert.Equal(t, "(11) 77777-7777", users[1].Phone)
	// 其他记录不受影响
	assert.Equal(t, "Administrador Principal", users[0].FullName)
}

func TestUpdateProfile_NoSession(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	res := s.UpdateProfile(ctx, ProfileUpdate{FullName: "X"})
	assert.False(t, res.Success)
	assert.True(t, errors.Is(res.Err, ErrUserNotFound))
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.True(t, s.Login(ctx, "usuario", "usuario123").Success)

	// 旧密码错误
	res := s.ChangePassword(ctx, "errada", "nova1234")
	assert.False(t, res.Success)
	assert.True(t, errors.Is(res.Err, ErrWrongPassword))
	assert.Equal(t, "Senha atual incorreta", res.Message)

	// 改密成功后旧密码失效
	res = s.ChangePassword(ctx, "usuario123", "nova1234")
	require.True(t, res.Success)

	assert.False(t, s.Login(ctx, "usuario", "usuario123").Success)
	assert.True(t, s.Login(ctx, "usuario", "nova1234").Success)
}

// TestAdminOnlyReads GetAllUsers/GetStats 是仅有的两个内部做权限检查的操作
func TestAdminOnlyReads(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	// 未登录
	assert.Nil(t, s.GetAllUsers(ctx))
	assert.Equal(t, model.UserStats{}, s.GetStats(ctx))

	// 普通用户
	require.True(t, s.Login(ctx, "usuario", "usuario123").Success)
	assert.Nil(t, s.GetAllUsers(ctx))
	assert.Equal(t, model.UserStats{}, s.GetStats(ctx))

	// 管理员
	require.True(t, s.Login(ctx, "admin", "admin123").Success)
	users := s.GetAllUsers(ctx)
	require.Len(t, users, 2)

	stats := s.GetStats(ctx)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 1, stats.Premium)
	assert.Equal(t, 1, stats.Admins)
	assert.Equal(t, 0, stats.Regular)
}

// TestHooks_FireAfterOperation 钩子在操作生效后按注册顺序触发
func TestHooks_FireAfterOperation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	type call struct {
		order int
		op    Operation
		user  string
	}
	var calls []call

	s.AddHook(func(_ context.Context, op Operation, u *model.UserRecord) {
		name := ""
		if u != nil {
			name = u.Username
		}
		calls = append(calls, call{1, op, name})
	})
	s.AddHook(func(_ context.Context, op Operation, u *model.UserRecord) {
		name := ""
		if u != nil {
			name = u.Username
		}
		calls = append(calls, call{2, op, name})
	})

	require.True(t, s.Login(ctx, "admin", "admin123").Success)
	s.Logout(ctx)

	require.Len(t, calls, 4)
	assert.Equal(t, call{1, OpLogin, "admin"}, calls[0])
	assert.Equal(t, call{2, OpLogin, "admin"}, calls[1])
	// 登出钩子的 user 为 nil
	assert.Equal(t, call{1, OpLogout, ""}, calls[2])
	assert.Equal(t, call{2, OpLogout, ""}, calls[3])
}

// TestHooks_FailedOperationDoesNotFire 失败的操作不触发钩子
func TestHooks_FailedOperationDoesNotFire(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	fired := 0
	s.AddHook(func(context.Context, Operation, *model.UserRecord) { fired++ })

	s.Login(ctx, "admin", "wrong")
	s.Register(ctx, RegisterInput{Username: "ab", Password: "1234"})

	assert.Equal(t, 0, fired)
}

// TestSessionSharedAcrossContexts 同一注册表上的两个上下文看到同一会话
func TestSessionSharedAcrossContexts(t *testing.T) {
	ctx := context.Background()
	hub := registry.NewHub()

	admin := NewStore(hub.Attach("admin"), logging.Default("auth-test"), WithClock(testClock))
	dashboard := NewStore(hub.Attach("dashboard"), logging.Default("auth-test"), WithClock(testClock))
	require.NoError(t, admin.Init(ctx))

	require.True(t, admin.Login(ctx, "admin", "admin123").Success)

	// 另一上下文无需重新登录即可看到会话
	assert.True(t, dashboard.IsAuthenticated(ctx))
	assert.Equal(t, "admin", dashboard.CurrentUser(ctx).Username)
	assert.True(t, dashboard.IsAdmin(ctx))

	// 任一上下文登出对所有上下文生效
	dashboard.Logout(ctx)
	assert.False(t, admin.IsAuthenticated(ctx))
}

func TestUIMessage(t *testing.T) {
	assert.Equal(t, "Credenciais inválidas", UIMessage(ErrInvalidCredentials))
	assert.Equal(t, "Usuário já existe", UIMessage(ErrUsernameTaken))
	assert.Equal(t, "Erro interno", UIMessage(errors.New("boom")))
}
