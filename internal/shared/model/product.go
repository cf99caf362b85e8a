package model

// ProductRecord 商品记录
//
// 商品变更不经过权限校验，授权由调用方 UI 负责。
type ProductRecord struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Icon        string  `json:"icon"`
	Stock       int     `json:"stock,omitempty"`
}

// CartItem 购物车条目
type CartItem struct {
	ProductRecord
	Quantity int   `json:"quantity"`
	AddedAt  int64 `json:"addedAt"`
}

// DefaultProducts 首次加载时写入的默认商品目录
func DefaultProducts() []ProductRecord {
	return []ProductRecord{
		{
			ID:          "frp_premium",
			Name:        "Licença FRP Premium",
			Description: "Acesso vitalício ao FRP Unlocker Pro",
			Price:       299.90,
			Icon:        "fa-unlock-alt",
		},
		{
			ID:          "imei_credits_10",
			Name:        "Créditos IMEI (10x)",
			Description: "10 desbloqueios IMEI em servidores premium",
			Price:       199.00,
			Icon:        "fa-key",
		},
		{
			ID:          "subscription_30",
			Name:        "Assinatura Pro (30 dias)",
			Description: "Acesso a todas as ferramentas por 30 dias",
			Price:       79.90,
			Icon:        "fa-star",
		},
	}
}

// ProductStats 商品统计（写入 product_stats）
type ProductStats struct {
	Total        int     `json:"total"`
	TotalValue   float64 `json:"totalValue"`
	AveragePrice float64 `json:"averagePrice"`
	LastSync     int64   `json:"lastSync"`
}
