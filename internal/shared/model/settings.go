package model

// AdminSettings 管理端界面配置（admin_settings）
type AdminSettings struct {
	Theme        string `json:"theme,omitempty"`
	BorderRadius int    `json:"borderRadius,omitempty"`
	MaxWidth     int    `json:"maxWidth,omitempty"`
}
