package model

// SaleRecord 销售记录
type SaleRecord struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId,omitempty"`
	Amount    float64 `json:"amount"`
	Date      int64   `json:"date"`
}

// TodaySalesStats 当日销售统计（写入 today_sales_stats）
//
// Date 为日历日字符串，按日字符串比较做"今天"分桶。
type TodaySalesStats struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
	Date  string  `json:"date"`
}
