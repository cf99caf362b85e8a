package model

// SyncSource 快照来源视图
type SyncSource string

const (
	SourceAdmin     SyncSource = "admin"
	SourceDashboard SyncSource = "dashboard"
)

// ============================================================================
// 同步快照类型（每个周期整体重算并覆盖写入，永不手工编辑）
// ============================================================================

// UsersSyncSnapshot users_sync 快照
type UsersSyncSnapshot struct {
	Count      int        `json:"count"`
	LastUpdate int64      `json:"lastUpdate"`
	Source     SyncSource `json:"source"`
}

// ProductsSyncSnapshot products_sync 快照
type ProductsSyncSnapshot struct {
	Count      int        `json:"count"`
	LastUpdate int64      `json:"lastUpdate"`
	Source     SyncSource `json:"source"`
}

// SalesSyncSnapshot sales_sync 快照
type SalesSyncSnapshot struct {
	Count      int        `json:"count"`
	Total      float64    `json:"total"`
	LastUpdate int64      `json:"lastUpdate"`
	Source     SyncSource `json:"source"`
}

// SupportSyncSnapshot support_sync 快照
type SupportSyncSnapshot struct {
	Count      int        `json:"count"`
	Pending    int        `json:"pending"`
	Active     int        `json:"active"`
	LastUpdate int64      `json:"lastUpdate"`
	Source     SyncSource `json:"source"`
}

// SettingsSyncSnapshot settings_sync 快照，内嵌当前配置数据
type SettingsSyncSnapshot struct {
	LastUpdate int64          `json:"lastUpdate"`
	Source     SyncSource     `json:"source"`
	Data       AdminSettings  `json:"data"`
}

// SyncCompletedEvent syncCompleted 事件负载
type SyncCompletedEvent struct {
	Timestamp int64      `json:"timestamp"`
	Source    SyncSource `json:"source"`
}

// SyncStatus getSyncStatus 的返回值
type SyncStatus struct {
	LastSync int64                 `json:"lastSync"`
	IsAdmin  bool                  `json:"isAdmin"`
	Users    *UsersSyncSnapshot    `json:"users"`
	Products *ProductsSyncSnapshot `json:"products"`
	Sales    *SalesSyncSnapshot    `json:"sales"`
	Support  *SupportSyncSnapshot  `json:"support"`
}
