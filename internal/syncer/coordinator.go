// Package syncer 跨视图数据同步协调器
//
// 两条输入通道喂同一套纯重算函数：固定间隔的定时器与注册表的跨上下文
// 变更通知。每个周期读原始集合、重算聚合快照、写回注册表并在通知总线
// 上发布领域事件。单个领域的故障（损坏数据、缺失 key）在重算边界被
// 完全吞掉，绝不阻塞其他领域。
//
// 一致性级别：快照写入与其依赖的原始集合
// 写入之间无事务，接受 last-write-wins —— 重算对给定存储状态是纯的，
// 并发的强制同步与定时周期只是重复同一次确定性重算。
package syncer

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/containerd/errdefs"

	"unlock-admin/internal/shared/eventbus"
	"unlock-admin/internal/shared/model"
	"unlock-admin/internal/shared/registry"
	"unlock-admin/pkg/logging"
)

// DefaultInterval 定时同步周期
const DefaultInterval = 30 * time.Second

// Coordinator 同步协调器
type Coordinator struct {
	reg      registry.Registry
	bus      eventbus.Bus
	source   model.SyncSource
	interval time.Duration
	log      *logging.Logger
	metrics  *Metrics
	now      func() time.Time

	mu       sync.Mutex
	lastSync time.Time
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Option 协调器可选配置
type Option func(*Coordinator)

// WithInterval 覆盖定时同步周期
func WithInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithMetrics 挂接 Prometheus 指标
func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithClock 覆盖时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New 创建同步协调器
func New(reg registry.Registry, bus eventbus.Bus, source model.SyncSource, log *logging.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		reg:      reg,
		bus:      bus,
		source:   source,
		interval: DefaultInterval,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start 启动定时器与变更监听；立即执行一次初始同步
func (c *Coordinator) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	changes, err := c.reg.Watch(runCtx)
	if err != nil {
		cancel()
		return err
	}
	c.cancel = cancel

	c.SyncData(runCtx)

	c.wg.Add(1)
	go c.run(runCtx, changes)
	c.log.Info("Sync coordinator started", "source", string(c.source), "interval", c.interval.String())
	return nil
}

// Stop 停止定时器与监听，等待工作 goroutine 退出。视图销毁时必须调用，
// 否则周期任务泄漏。
func (c *Coordinator) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

func (c *Coordinator) run(ctx context.Context, changes <-chan registry.Change) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.SyncData(ctx)
		case ch, ok := <-changes:
			if !ok {
				return
			}
			c.handleChange(ctx, ch)
		}
	}
}

// ============================================================================
// 同步周期
// ============================================================================

// SyncData 全量同步：重算五个领域的快照并广播 syncCompleted。
// 幂等，可与定时周期并发触发（重算是确定性的，last write wins）。
func (c *Coordinator) SyncData(ctx context.Context) {
	started := c.now()

	c.syncUsers(ctx)
	c.syncProducts(ctx)
	c.syncSales(ctx)
	c.syncSupport(ctx)
	c.syncSettings(ctx)

	c.mu.Lock()
	c.lastSync = started
	c.mu.Unlock()

	ms := model.EpochMillis(started)
	if err := c.reg.Set(ctx, model.KeyLastSync, strconv.FormatInt(ms, 10)); err != nil {
		c.log.WithError(err).Warn("Failed to persist last sync timestamp")
	}
	c.publish(eventbus.EventSyncCompleted, &model.SyncCompletedEvent{Timestamp: ms, Source: c.source})

	if c.metrics != nil {
		c.metrics.CyclesTotal.Inc()
		c.metrics.LastSyncTime.Set(float64(started.Unix()))
	}
	c.log.SyncCycleLog(string(c.source), c.now().Sub(started), nil)
}

func (c *Coordinator) syncUsers(ctx context.Context) {
	now := c.now()
	var users []model.UserRecord
	c.loadCollection(ctx, model.KeyUsers, "users", &users)

	snapshot := computeUsersSnapshot(users, now, c.source)
	c.writeJSON(ctx, model.KeyUsersSync, "users", snapshot)
	c.writeJSON(ctx, model.KeyUserStats, "users", computeUserStats(users, now))
	c.publish(eventbus.EventUsersUpdated, &snapshot)
	c.countDomain("users")
}

func (c *Coordinator) syncProducts(ctx context.Context) {
	now := c.now()
	var products []model.ProductRecord
	c.loadCollection(ctx, model.KeyProducts, "products", &products)

	snapshot := computeProductsSnapshot(products, now, c.source)
	c.writeJSON(ctx, model.KeyProductsSync, "products", snapshot)
	c.writeJSON(ctx, model.KeyProductStats, "products", computeProductStats(products, now))
	c.publish(eventbus.EventProductsUpdated, &snapshot)
	c.countDomain("products")
}

func (c *Coordinator) syncSales(ctx context.Context) {
	now := c.now()
	var sales []model.SaleRecord
	c.loadCollection(ctx, model.KeySales, "sales", &sales)

	snapshot := computeSalesSnapshot(sales, now, c.source)
	c.writeJSON(ctx, model.KeySalesSync, "sales", snapshot)
	c.writeJSON(ctx, model.KeyTodaySalesStats, "sales", computeTodaySalesStats(sales, now))
	c.publish(eventbus.EventSalesUpdated, &snapshot)
	c.countDomain("sales")
}

func (c *Coordinator) syncSupport(ctx context.Context) {
	now := c.now()
	var tickets []model.SupportTicket
	c.loadCollection(ctx, model.KeySupportTickets, "support", &tickets)

	snapshot := computeSupportSnapshot(tickets, now, c.source)
	c.writeJSON(ctx, model.KeySupportSync, "support", snapshot)
	c.publish(eventbus.EventSupportUpdated, &snapshot)
	c.countDomain("support")
}

func (c *Coordinator) syncSettings(ctx context.Context) {
	now := c.now()
	var settings model.AdminSettings
	c.loadCollection(ctx, model.KeySettings, "settings", &settings)

	snapshot := computeSettingsSnapshot(settings, now, c.source)
	c.writeJSON(ctx, model.KeySettingsSync, "settings", snapshot)
	c.publish(eventbus.EventSettingsUpdated, &snapshot)
	c.countDomain("settings")
}

// ============================================================================
// 强制同步（带外触发，绕过定时器；幂等，无去抖）
// ============================================================================

// ForceUserSync 立即重算用户领域
func (c *Coordinator) ForceUserSync(ctx context.Context) {
	c.touchForceMarker(ctx, model.KeyForceUserSync)
	c.syncUsers(ctx)
	c.countForce("users")
}

// ForceProductSync 立即重算商品领域
func (c *Coordinator) ForceProductSync(ctx context.Context) {
	c.touchForceMarker(ctx, model.KeyForceProductSync)
	c.syncProducts(ctx)
	c.countForce("products")
}

// ForceSalesSync 立即重算销售领域
func (c *Coordinator) ForceSalesSync(ctx context.Context) {
	c.touchForceMarker(ctx, model.KeyForceSalesSync)
	c.syncSales(ctx)
	c.countForce("sales")
}

// ForceSupportSync 立即重算支持领域
func (c *Coordinator) ForceSupportSync(ctx context.Context) {
	c.touchForceMarker(ctx, model.KeyForceSupportSync)
	c.syncSupport(ctx)
	c.countForce("support")
}

func (c *Coordinator) touchForceMarker(ctx context.Context, key string) {
	ms := strconv.FormatInt(model.EpochMillis(c.now()), 10)
	if err := c.reg.Set(ctx, key, ms); err != nil {
		c.log.WithError(err).Warn("Failed to touch force marker", "key", key)
	}
}

// ============================================================================
// 状态与重置
// ============================================================================

// GetSyncStatus 当前同步状态；缺失或损坏的快照为 nil
func (c *Coordinator) GetSyncStatus(ctx context.Context) model.SyncStatus {
	c.mu.Lock()
	last := c.lastSync
	c.mu.Unlock()

	status := model.SyncStatus{
		IsAdmin: c.source == model.SourceAdmin,
	}
	if !last.IsZero() {
		status.LastSync = model.EpochMillis(last)
	}

	var users model.UsersSyncSnapshot
	if registry.GetJSON(ctx, c.reg, model.KeyUsersSync, &users) == nil {
		status.Users = &users
	}
	var products model.ProductsSyncSnapshot
	if registry.GetJSON(ctx, c.reg, model.KeyProductsSync, &products) == nil {
		status.Products = &products
	}
	var sales model.SalesSyncSnapshot
	if registry.GetJSON(ctx, c.reg, model.KeySalesSync, &sales) == nil {
		status.Sales = &sales
	}
	var support model.SupportSyncSnapshot
	if registry.GetJSON(ctx, c.reg, model.KeySupportSync, &support) == nil {
		status.Support = &support
	}
	return status
}

// ResetSyncData 批量清除所有派生快照与统计。原始实体集合不受影响。
func (c *Coordinator) ResetSyncData(ctx context.Context) {
	for _, key := range model.SyncDataKeys {
		if err := c.reg.Remove(ctx, key); err != nil {
			c.log.WithError(err).Warn("Failed to remove sync key", "key", key)
		}
	}
	c.log.Info("Sync data reset")
}

// ============================================================================
// 跨上下文变更分发
// ============================================================================

// handleChange 处理其他上下文的注册表变更。注册表的通知契约只对其他
// 上下文投递，自写回环在结构上不可能发生。只识别以 _sync 结尾的 key；
// 损坏的负载记日志后丢弃，绝不让单个领域阻塞其余分发。
func (c *Coordinator) handleChange(ctx context.Context, ch registry.Change) {
	if !strings.HasSuffix(ch.Key, model.SyncKeySuffix) || ch.Removed {
		return
	}

	switch ch.Key {
	case model.KeyUsersSync:
		c.dispatch(ch, "users", eventbus.EventUsersUpdated, &model.UsersSyncSnapshot{})
	case model.KeyProductsSync:
		c.dispatch(ch, "products", eventbus.EventProductsUpdated, &model.ProductsSyncSnapshot{})
	case model.KeySalesSync:
		c.dispatch(ch, "sales", eventbus.EventSalesUpdated, &model.SalesSyncSnapshot{})
	case model.KeySupportSync:
		c.dispatch(ch, "support", eventbus.EventSupportUpdated, &model.SupportSyncSnapshot{})
	case model.KeySettingsSync:
		c.dispatch(ch, "settings", eventbus.EventSettingsUpdated, &model.SettingsSyncSnapshot{})
	default:
		// force_*_sync 标记之类的 key 也带 _sync 后缀，忽略
		c.log.Debug("Ignoring unrecognized sync key", "key", ch.Key)
	}
}

// dispatch 解码跨上下文快照负载并在本地总线上重新发布领域事件
func (c *Coordinator) dispatch(ch registry.Change, domain, event string, payload any) {
	if err := decodeJSON(ch.NewValue, payload); err != nil {
		c.log.WithDomain(domain).WithError(err).Warn("Malformed sync payload dropped")
		c.countDecodeError(domain)
		return
	}
	c.log.WithDomain(domain).Debug("Cross-context change received", "key", ch.Key)
	c.publish(event, payload)
}

// ============================================================================
// 内部辅助
// ============================================================================

// loadCollection 读取原始集合；缺失或损坏一律按空默认值处理
func (c *Coordinator) loadCollection(ctx context.Context, key, domain string, v any) {
	err := registry.GetJSON(ctx, c.reg, key, v)
	if err == nil || errdefs.IsNotFound(err) {
		return
	}
	c.log.WithDomain(domain).WithError(err).Warn("Stored data unreadable, treating as empty")
	c.countDecodeError(domain)
}

func (c *Coordinator) writeJSON(ctx context.Context, key, domain string, v any) {
	if err := registry.SetJSON(ctx, c.reg, key, v); err != nil {
		c.log.WithDomain(domain).WithError(err).Warn("Failed to write snapshot", "key", key)
		if c.metrics != nil {
			c.metrics.WriteErrors.WithLabelValues(domain).Inc()
		}
	}
}

func (c *Coordinator) publish(event string, payload any) {
	c.bus.Publish(event, payload)
	if c.metrics != nil {
		c.metrics.EventsPublished.WithLabelValues(event).Inc()
	}
}

func (c *Coordinator) countDomain(domain string) {
	if c.metrics != nil {
		c.metrics.DomainSyncTotal.WithLabelValues(domain).Inc()
	}
}

func (c *Coordinator) countForce(domain string) {
	if c.metrics != nil {
		c.metrics.ForceSyncTotal.WithLabelValues(domain).Inc()
	}
}

func (c *Coordinator) countDecodeError(domain string) {
	if c.metrics != nil {
		c.metrics.DecodeErrors.WithLabelValues(domain).Inc()
	}
}

func decodeJSON(raw string, v any) error {
	return json.Unmarshal([]byte(raw), v)
}
