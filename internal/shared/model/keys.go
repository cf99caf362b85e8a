package model

// ============================================================================
// 注册表 Key 常量
// ============================================================================

// 原始实体集合 Key
const (
	KeyUsers           = "users_db"
	KeyAuthenticated   = "authenticated"
	KeyCurrentUser     = "currentUser"
	KeyProducts        = "site_products"
	KeySales           = "sales_data"
	KeySupportTickets  = "support_tickets"
	KeySupportMessages = "support_messages"
	KeyShoppingCart    = "shopping_cart"
	KeySettings        = "admin_settings"
)

// 同步快照 Key（以 SyncKeySuffix 结尾，跨上下文变更时触发分发）
const (
	KeyUsersSync    = "users_sync"
	KeyProductsSync = "products_sync"
	KeySalesSync    = "sales_sync"
	KeySupportSync  = "support_sync"
	KeySettingsSync = "settings_sync"
)

// 派生统计 Key
const (
	KeyUserStats       = "user_stats"
	KeyProductStats    = "product_stats"
	KeyTodaySalesStats = "today_sales_stats"
	KeyLastSync        = "last_sync"
)

// 强制同步标记 Key（仅写入时间戳，供外部观察）
const (
	KeyForceUserSync    = "force_user_sync"
	KeyForceProductSync = "force_product_sync"
	KeyForceSalesSync   = "force_sales_sync"
	KeyForceSupportSync = "force_support_sync"
)

// SyncKeySuffix 受监视的同步 Key 后缀
const SyncKeySuffix = "_sync"

// SyncDataKeys ResetSyncData 批量清除的派生 Key 集合
var SyncDataKeys = []string{
	KeyUsersSync,
	KeyProductsSync,
	KeySalesSync,
	KeySupportSync,
	KeySettingsSync,
	KeyLastSync,
	KeyUserStats,
	KeyProductStats,
	KeyTodaySalesStats,
}
