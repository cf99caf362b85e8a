// Package model 定义管理面板的核心数据模型
package model

import "time"

// UserRole 用户角色
type UserRole string

const (
	UserRoleUser       UserRole = "user"
	UserRoleAdmin      UserRole = "admin"
	UserRoleSuperAdmin UserRole = "superadmin"
)

// 权限常量
const (
	PermissionBasic = "basic"
	PermissionAll   = "all"
)

// UserRecord 用户记录
//
// 密码以明文存储并按明文比较，这是本系统被记录在案的主要弱点，
// 实现上刻意保留该边界以兼容既有持久化数据，不引入散列。
type UserRecord struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	FullName    string   `json:"fullName"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Password    string   `json:"password"`
	Role        UserRole `json:"role"`
	VIP         bool     `json:"vip"`
	IsPremium   bool     `json:"isPremium"`
	Active      bool     `json:"active"`
	CreatedAt   int64    `json:"createdAt"`
	LastLogin   int64    `json:"lastLogin"`
	Permissions []string `json:"permissions"`
}

// HasPermission 检查权限集合成员
func (u *UserRecord) HasPermission(permission string) bool {
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Premium 是否为 VIP/Premium 用户
func (u *UserRecord) Premium() bool {
	return u.VIP || u.IsPremium
}

// GuestUser 访客投影：会话未建立或悬空时 CurrentUser 的确定性返回值
func GuestUser() *UserRecord {
	return &UserRecord{
		FullName:    "Usuário",
		Role:        UserRoleUser,
		Active:      false,
		CreatedAt:   EpochMillis(time.Now()),
		Permissions: []string{PermissionBasic},
	}
}

// DefaultUsers 首次初始化时写入的默认用户集合
func DefaultUsers(now time.Time) []UserRecord {
	ms := EpochMillis(now)
	return []UserRecord{
		{
			ID:          "admin001",
			Username:    "admin",
			FullName:    "Administrador Principal",
			Email:       "admin@jpcellfrp.com",
			Phone:       "(11) 99999-9999",
			Password:    "admin123",
			Role:        UserRoleSuperAdmin,
			VIP:         true,
			IsPremium:   true,
			Active:      true,
			CreatedAt:   ms,
			LastLogin:   ms,
			Permissions: []string{PermissionAll},
		},
		{
			ID:          "user001",
			Username:    "usuario",
			FullName:    "Usuário Teste",
			Email:       "usuario@teste.com",
			Phone:       "(11) 88888-8888",
			Password:    "usuario123",
			Role:        UserRoleUser,
			Active:      true,
			CreatedAt:   ms,
			LastLogin:   ms,
			Permissions: []string{PermissionBasic},
		},
	}
}

// UserStats 用户统计（getStats 的返回值，亦写入 user_stats）
type UserStats struct {
	Total    int   `json:"total"`
	Active   int   `json:"active"`
	Premium  int   `json:"premium"`
	Admins   int   `json:"admins"`
	Regular  int   `json:"regular,omitempty"`
	LastSync int64 `json:"lastSync,omitempty"`
}

// EpochMillis 时间转换为毫秒级时间戳（持久化格式）
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}
