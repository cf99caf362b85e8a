// Package catalog 商品目录与购物车
//
// 商品变更不做权限校验，授权由调用方界面层负责，属已记录的
// 设计缺口（凭据存储只对 getAllUsers/getStats 做内部检查）。
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/containerd/errdefs"
	"github.com/google/uuid"

	"unlock-admin/internal/shared/model"
	"unlock-admin/internal/shared/registry"
	"unlock-admin/pkg/logging"
)

// ProductSyncer 商品领域的强制同步触发（由同步协调器实现）
type ProductSyncer interface {
	ForceProductSync(ctx context.Context)
}

// Service 商品目录服务
type Service struct {
	reg    registry.Registry
	log    *logging.Logger
	syncer ProductSyncer
	newID  func() string
	nowMs  func() int64
}

// NewService 创建目录服务；syncer 可为 nil（无协调器时变更不广播）
func NewService(reg registry.Registry, log *logging.Logger, syncer ProductSyncer) *Service {
	return &Service{
		reg:    reg,
		log:    log,
		syncer: syncer,
		newID:  func() string { return "prod_" + uuid.NewString() },
		nowMs:  func() int64 { return model.EpochMillis(time.Now()) },
	}
}

// List 商品列表；site_products 缺失时写入并返回默认目录
func (s *Service) List(ctx context.Context) []model.ProductRecord {
	var products []model.ProductRecord
	err := registry.GetJSON(ctx, s.reg, model.KeyProducts, &products)
	if err == nil {
		return products
	}
	if !errdefs.IsNotFound(err) {
		s.log.WithError(err).Warn("Product collection unreadable, treating as empty")
		return nil
	}

	products = model.DefaultProducts()
	if err := registry.SetJSON(ctx, s.reg, model.KeyProducts, products); err != nil {
		s.log.WithError(err).Warn("Failed to seed default products")
	}
	return products
}

// Save 新增或按 ID 覆盖商品；ID 为空时生成
func (s *Service) Save(ctx context.Context, p model.ProductRecord) (model.ProductRecord, error) {
	if p.ID == "" {
		p.ID = s.newID()
	}

	products := s.List(ctx)
	replaced := false
	for i := range products {
		if products[i].ID == p.ID {
			products[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		products = append(products, p)
	}

	if err := registry.SetJSON(ctx, s.reg, model.KeyProducts, products); err != nil {
		return model.ProductRecord{}, err
	}
	if s.syncer != nil {
		s.syncer.ForceProductSync(ctx)
	}
	return p, nil
}

// Delete 按 ID 删除商品；删除不存在的 ID 不报错
func (s *Service) Delete(ctx context.Context, id string) error {
	products := s.List(ctx)
	kept := products[:0]
	for _, p := range products {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(products) {
		return nil
	}

	if err := registry.SetJSON(ctx, s.reg, model.KeyProducts, kept); err != nil {
		return err
	}
	if s.syncer != nil {
		s.syncer.ForceProductSync(ctx)
	}
	return nil
}

// AddToCart 加入购物车：已有条目累加数量，否则追加新条目
func (s *Service) AddToCart(ctx context.Context, productID string) (model.CartItem, error) {
	var product *model.ProductRecord
	for _, p := range s.List(ctx) {
		if p.ID == productID {
			product = &p
			break
		}
	}
	if product == nil {
		return model.CartItem{}, fmt.Errorf("product %s: %w", productID, errdefs.ErrNotFound)
	}

	cart := s.Cart(ctx)
	for i := range cart {
		if cart[i].ID == productID {
			cart[i].Quantity++
			if err := registry.SetJSON(ctx, s.reg, model.KeyShoppingCart, cart); err != nil {
				return model.CartItem{}, err
			}
			return cart[i], nil
		}
	}

	item := model.CartItem{
		ProductRecord: *product,
		Quantity:      1,
		AddedAt:       s.nowMs(),
	}
	cart = append(cart, item)
	if err := registry.SetJSON(ctx, s.reg, model.KeyShoppingCart, cart); err != nil {
		return model.CartItem{}, err
	}
	return item, nil
}

// Cart 当前购物车；缺失或损坏按空处理
func (s *Service) Cart(ctx context.Context) []model.CartItem {
	var cart []model.CartItem
	if err := registry.GetJSON(ctx, s.reg, model.KeyShoppingCart, &cart); err != nil {
		if !errdefs.IsNotFound(err) {
			s.log.WithError(err).Warn("Shopping cart unreadable, treating as empty")
		}
		return nil
	}
	return cart
}
