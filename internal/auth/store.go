package auth

import (
	"context"
	"time"

	"github.com/containerd/errdefs"
	"github.com/google/uuid"

	"unlock-admin/internal/shared/model"
	"unlock-admin/internal/shared/registry"
	"unlock-admin/pkg/logging"
)

// 注册校验阈值
const (
	minUsernameLen = 3
	minPasswordLen = 4
)

// Store 凭据存储
//
// 持有权威用户集合（users_db）与当前会话指针（authenticated/currentUser），
// 两者都落在共享状态注册表里。密码按明文存储与比较——被记录在案的设计
// 弱点，为兼容既有用户数据刻意保留。
type Store struct {
	reg        registry.Registry
	log        *logging.Logger
	nav        Navigator
	hooks      []Hook
	adminRoles []model.UserRole

	// 测试注入点
	now   func() time.Time
	newID func() string
}

// Option Store 可选配置
type Option func(*Store)

// WithNavigator 设置登出后的跳转器
func WithNavigator(nav Navigator) Option {
	return func(s *Store) { s.nav = nav }
}

// WithAdminRoles 覆盖管理员角色集合（默认 admin/superadmin）
func WithAdminRoles(roles []model.UserRole) Option {
	return func(s *Store) {
		if len(roles) > 0 {
			s.adminRoles = roles
		}
	}
}

// WithClock 覆盖时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator 覆盖 ID 生成器（测试用）
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// NewStore 创建凭据存储
func NewStore(reg registry.Registry, log *logging.Logger, opts ...Option) *Store {
	s := &Store{
		reg:        reg,
		log:        log,
		adminRoles: []model.UserRole{model.UserRoleAdmin, model.UserRoleSuperAdmin},
		now:        time.Now,
		newID:      func() string { return "user_" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init 首次初始化：users_db 不存在时写入默认用户集合。幂等。
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.reg.Get(ctx, model.KeyUsers); err == nil {
		return nil
	} else if !errdefs.IsNotFound(err) {
		return err
	}
	s.log.Info("Seeding default user collection")
	return registry.SetJSON(ctx, s.reg, model.KeyUsers, model.DefaultUsers(s.now()))
}

// loadUsers 读取用户集合；缺失或损坏一律按空集合处理（本地恢复，不上抛）
func (s *Store) loadUsers(ctx context.Context) []model.UserRecord {
	var users []model.UserRecord
	if err := registry.GetJSON(ctx, s.reg, model.KeyUsers, &users); err != nil {
		if !errdefs.IsNotFound(err) {
			s.log.WithError(err).Warn("User collection unreadable, treating as empty")
		}
		return nil
	}
	return users
}

func (s *Store) saveUsers(ctx context.Context, users []model.UserRecord) error {
	return registry.SetJSON(ctx, s.reg, model.KeyUsers, users)
}

// sessionUsername 当前会话指向的用户名；会话未建立时为空串
func (s *Store) sessionUsername(ctx context.Context) string {
	flag, err := s.reg.Get(ctx, model.KeyAuthenticated)
	if err != nil || flag != "true" {
		return ""
	}
	username, err := s.reg.Get(ctx, model.KeyCurrentUser)
	if err != nil {
		return ""
	}
	return username
}

func (s *Store) establishSession(ctx context.Context, username string) error {
	if err := s.reg.Set(ctx, model.KeyAuthenticated, "true"); err != nil {
		return err
	}
	return s.reg.Set(ctx, model.KeyCurrentUser, username)
}

// ============================================================================
// 认证操作
// ============================================================================

// Login 登录：用户名、密码精确匹配且记录激活才成功（大小写敏感，无部分匹配）
func (s *Store) Login(ctx context.Context, username, password string) Result {
	if err := s.Init(ctx); err != nil {
		s.log.WithError(err).Warn("Init before login failed")
	}

	users := s.loadUsers(ctx)
	for i := range users {
		u := &users[i]
		if u.Username != username || u.Password != password || !u.Active {
			continue
		}

		u.LastLogin = model.EpochMillis(s.now())
		if err := s.saveUsers(ctx, users); err != nil {
			s.log.WithError(err).Warn("Failed to persist lastLogin")
		}
		if err := s.establishSession(ctx, username); err != nil {
			s.log.WithError(err).Warn("Failed to establish session")
		}

		s.log.AuthLog(string(OpLogin), username, true)
		snapshot := *u
		s.fireHooks(ctx, OpLogin, &snapshot)
		return success(&snapshot)
	}

	s.log.AuthLog(string(OpLogin), username, false)
	return failure(ErrInvalidCredentials)
}

// Logout 无条件清除会话并跳转到入口视图
func (s *Store) Logout(ctx context.Context) {
	if err := s.reg.Remove(ctx, model.KeyAuthenticated); err != nil {
		s.log.WithError(err).Warn("Failed to clear authenticated flag")
	}
	if err := s.reg.Remove(ctx, model.KeyCurrentUser); err != nil {
		s.log.WithError(err).Warn("Failed to clear current user")
	}
	s.fireHooks(ctx, OpLogout, nil)
	if s.nav != nil {
		s.nav.NavigateTo(ViewEntry)
	}
}

// RegisterInput 注册字段
type RegisterInput struct {
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Register 注册新用户；成功后立即建立会话（自动登录）
func (s *Store) Register(ctx context.Context, input RegisterInput) Result {
	if err := s.Init(ctx); err != nil {
		s.log.WithError(err).Warn("Init before register failed")
	}

	if len(input.Username) < minUsernameLen {
		return failure(ErrUsernameTooShort)
	}
	if len(input.Password) < minPasswordLen {
		return failure(ErrPasswordTooShort)
	}

	users := s.loadUsers(ctx)
	for i := range users {
		if users[i].Username == input.Username {
			return failure(ErrUsernameTaken)
		}
	}
	if input.Email != "" {
		for i := range users {
			if users[i].Email == input.Email {
				return failure(ErrEmailTaken)
			}
		}
	}

	fullName := input.FullName
	if fullName == "" {
		fullName = input.Username
	}

	ms := model.EpochMillis(s.now())
	newUser := model.UserRecord{
		ID:          s.newID(),
		Username:    input.Username,
		FullName:    fullName,
		Email:       input.Email,
		Phone:       input.Phone,
		Password:    input.Password,
		Role:        model.UserRoleUser,
		Active:      true,
		CreatedAt:   ms,
		LastLogin:   ms,
		Permissions: []string{model.PermissionBasic},
	}

	users = append(users, newUser)
	if err := s.saveUsers(ctx, users); err != nil {
		s.log.WithError(err).Warn("Failed to persist new user")
	}
	if err := s.establishSession(ctx, newUser.Username); err != nil {
		s.log.WithError(err).Warn("Failed to establish session")
	}

	s.log.AuthLog(string(OpRegister), newUser.Username, true)
	s.fireHooks(ctx, OpRegister, &newUser)
	return success(&newUser)
}

// ============================================================================
// 会话读取
// ============================================================================

// IsAuthenticated 会话指针有效且指向激活用户时为真（每次读取自愈检查）
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	username := s.sessionUsername(ctx)
	if username == "" {
		return false
	}
	for _, u := range s.loadUsers(ctx) {
		if u.Username == username {
			return u.Active
		}
	}
	return false
}

// CurrentUser 解析会话为用户记录快照；会话未建立或悬空时返回确定性的
// 访客投影，从不失败。调用方在依赖真实数据前必须先检查认证状态。
func (s *Store) CurrentUser(ctx context.Context) *model.UserRecord {
	username := s.sessionUsername(ctx)
	if username == "" {
		return model.GuestUser()
	}
	for _, u := range s.loadUsers(ctx) {
		if u.Username == username {
			snapshot := u
			snapshot.Password = ""
			return &snapshot
		}
	}
	guest := model.GuestUser()
	guest.Username = username
	guest.FullName = username
	return guest
}

// HasPermission superadmin 与携带 all 权限的记录恒通过，其余查集合成员
func (s *Store) HasPermission(ctx context.Context, permission string) bool {
	user := s.CurrentUser(ctx)
	if user.Role == model.UserRoleSuperAdmin {
		return true
	}
	if user.HasPermission(model.PermissionAll) {
		return true
	}
	return user.HasPermission(permission)
}

// IsAdmin 当前用户角色属于管理员角色集合
func (s *Store) IsAdmin(ctx context.Context) bool {
	role := s.CurrentUser(ctx).Role
	for _, r := range s.adminRoles {
		if role == r {
			return true
		}
	}
	return false
}

// IsPremium 当前用户为 VIP/Premium
func (s *Store) IsPremium(ctx context.Context) bool {
	return s.CurrentUser(ctx).Premium()
}

// ============================================================================
// 会话自身记录的变更
// ============================================================================

// ProfileUpdate 资料更新字段；空字段不变更
type ProfileUpdate struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// UpdateProfile 只变更会话自己的记录
func (s *Store) UpdateProfile(ctx context.Context, update ProfileUpdate) Result {
	username := s.sessionUsername(ctx)
	users := s.loadUsers(ctx)
	for i := range users {
		if users[i].Username != username || username == "" {
			continue
		}
		if update.FullName != "" {
			users[i].FullName = update.FullName
		}
		if update.Email != "" {
			users[i].Email = update.Email
		}
		if update.Phone != "" {
			users[i].Phone = update.Phone
		}
		if err := s.saveUsers(ctx, users); err != nil {
			s.log.WithError(err).Warn("Failed to persist profile update")
		}
		snapshot := users[i]
		s.fireHooks(ctx, OpUpdateProfile, &snapshot)
		return success(&snapshot)
	}
	return failure(ErrUserNotFound)
}

// ChangePassword 旧密码精确匹配才允许改密
func (s *Store) ChangePassword(ctx context.Context, currentPassword, newPassword string) Result {
	username := s.sessionUsername(ctx)
	users := s.loadUsers(ctx)
	for i := range users {
		if users[i].Username != username || username == "" {
			continue
		}
		if users[i].Password != currentPassword {
			return failure(ErrWrongPassword)
		}
		users[i].Password = newPassword
		if err := s.saveUsers(ctx, users); err != nil {
			s.log.WithError(err).Warn("Failed to persist password change")
		}
		snapshot := users[i]
		s.fireHooks(ctx, OpChangePassword, &snapshot)
		return success(&snapshot)
	}
	return failure(ErrUserNotFound)
}

// ============================================================================
// 特权读取（仅这两个操作在存储内部做权限检查）
// ============================================================================

// GetAllUsers 非管理员调用返回空集合
func (s *Store) GetAllUsers(ctx context.Context) []model.UserRecord {
	if !s.IsAdmin(ctx) {
		return nil
	}
	return s.loadUsers(ctx)
}

// GetStats 非管理员调用返回零值统计
func (s *Store) GetStats(ctx context.Context) model.UserStats {
	if !s.IsAdmin(ctx) {
		return model.UserStats{}
	}

	users := s.loadUsers(ctx)
	stats := model.UserStats{Total: len(users)}
	for _, u := range users {
		if u.Active {
			stats.Active++
		}
		if u.Premium() {
			stats.Premium++
		}
		for _, r := range s.adminRoles {
			if u.Role == r {
				stats.Admins++
				break
			}
		}
	}
	stats.Regular = stats.Total - stats.Premium - stats.Admins
	return stats
}
