// Package syncer 聚合重算
//
// 每个 compute 函数都是纯函数：给定当前原始集合与时钟即可确定输出，
// 定时器触发、强制同步与跨上下文通知共用同一套重算逻辑。
package syncer

import (
	"time"

	"unlock-admin/internal/shared/model"
)

// dayFormat 日历日分桶格式（与持久化数据里 Date.toDateString 风格的日期文本对齐）
const dayFormat = "Mon Jan 02 2006"

func computeUsersSnapshot(users []model.UserRecord, now time.Time, source model.SyncSource) model.UsersSyncSnapshot {
	return model.UsersSyncSnapshot{
		Count:      len(users),
		LastUpdate: model.EpochMillis(now),
		Source:     source,
	}
}

// computeUserStats 用户统计；admins 只计 admin 角色（superadmin 单列在
// 凭据存储的 getStats 里，两处口径不同，保持现状）
func computeUserStats(users []model.UserRecord, now time.Time) model.UserStats {
	stats := model.UserStats{Total: len(users), LastSync: model.EpochMillis(now)}
	for _, u := range users {
		if u.Active {
			stats.Active++
		}
		if u.Premium() {
			stats.Premium++
		}
		if u.Role == model.UserRoleAdmin {
			stats.Admins++
		}
	}
	return stats
}

func computeProductsSnapshot(products []model.ProductRecord, now time.Time, source model.SyncSource) model.ProductsSyncSnapshot {
	return model.ProductsSyncSnapshot{
		Count:      len(products),
		LastUpdate: model.EpochMillis(now),
		Source:     source,
	}
}

func computeProductStats(products []model.ProductRecord, now time.Time) model.ProductStats {
	stats := model.ProductStats{Total: len(products), LastSync: model.EpochMillis(now)}
	for _, p := range products {
		stats.TotalValue += p.Price
	}
	if len(products) > 0 {
		stats.AveragePrice = stats.TotalValue / float64(len(products))
	}
	return stats
}

func computeSalesSnapshot(sales []model.SaleRecord, now time.Time, source model.SyncSource) model.SalesSyncSnapshot {
	snapshot := model.SalesSyncSnapshot{
		Count:      len(sales),
		LastUpdate: model.EpochMillis(now),
		Source:     source,
	}
	for _, s := range sales {
		snapshot.Total += s.Amount
	}
	return snapshot
}

// computeTodaySalesStats 按日历日字符串比较做"今天"分桶；
// 缺失的销售时间按当前时刻计
func computeTodaySalesStats(sales []model.SaleRecord, now time.Time) model.TodaySalesStats {
	today := now.Format(dayFormat)
	stats := model.TodaySalesStats{Date: today}
	for _, s := range sales {
		saleDay := today
		if s.Date != 0 {
			saleDay = time.UnixMilli(s.Date).Format(dayFormat)
		}
		if saleDay != today {
			continue
		}
		stats.Count++
		stats.Total += s.Amount
	}
	return stats
}

func computeSupportSnapshot(tickets []model.SupportTicket, now time.Time, source model.SyncSource) model.SupportSyncSnapshot {
	snapshot := model.SupportSyncSnapshot{
		Count:      len(tickets),
		LastUpdate: model.EpochMillis(now),
		Source:     source,
	}
	for _, t := range tickets {
		switch t.Status {
		case model.TicketStatusPending:
			snapshot.Pending++
		case model.TicketStatusActive:
			snapshot.Active++
		}
	}
	return snapshot
}

func computeSettingsSnapshot(settings model.AdminSettings, now time.Time, source model.SyncSource) model.SettingsSyncSnapshot {
	return model.SettingsSyncSnapshot{
		LastUpdate: model.EpochMillis(now),
		Source:     source,
		Data:       settings,
	}
}
