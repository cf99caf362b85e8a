// Package eventbus 进程内通知总线抽象接口
//
// 下游视图模块订阅"数据已变更"事件。订阅者之间无投递顺序保证，
// 处理器不得假设其他处理器已经运行。本系统范围内不需要退订
// （订阅生命周期 = 视图生命周期）。
package eventbus

// ============================================================================
// 事件名常量（领域标识）
// ============================================================================

const (
	EventUsersUpdated    = "usersUpdated"
	EventProductsUpdated = "productsUpdated"
	EventSalesUpdated    = "salesUpdated"
	EventSupportUpdated  = "supportUpdated"
	EventSettingsUpdated = "settingsUpdated"
	EventSyncCompleted   = "syncCompleted"
)

// Handler 事件处理器
type Handler func(payload any)

// Bus 通知总线接口
type Bus interface {
	Subscribe(event string, h Handler)
	Publish(event string, payload any)
}
