// Package catalog 商品目录与购物车测试
package catalog

import (
	"context"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unlock-admin/internal/shared/model"
	"unlock-admin/internal/shared/registry"
	"unlock-admin/pkg/logging"
)

// fakeSyncer 记录强制同步调用
type fakeSyncer struct {
	calls int
}

func (f *fakeSyncer) ForceProductSync(ctx context.Context) { f.calls++ }

func newTestService(t *testing.T) (*Service, registry.Registry, *fakeSyncer) {
	t.Helper()

	reg := registry.NewHub().Attach("test")
	syncer := &fakeSyncer{}
	s := NewService(reg, logging.Default("catalog-test"), syncer)
	s.newID = func() string { return "prod_fixed" }
	s.nowMs = func() int64 { return 1717243200000 }
	return s, reg, syncer
}

// TestList_SeedsDefaults 目录缺失时写入并返回默认商品
func TestList_SeedsDefaults(t *testing.T) {
	ctx := context.Background()
	s, reg, _ := newTestService(t)

	products := s.List(ctx)
	require.Len(t, products, 3)

	// 默认目录已持久化
	var stored []model.ProductRecord
	require.NoError(t, registry.GetJSON(ctx, reg, model.KeyProducts, &stored))
	assert.Equal(t, products, stored)

	// 再次 List 不重复写
	assert.Len(t, s.List(ctx), 3)
}

func TestSave_InsertAndUpdate(t *testing.T) {
	ctx := context.Background()
	s, _, syncer := newTestService(t)

	// 新增：ID 为空时生成
	saved, err := s.Save(ctx, model.ProductRecord{Name: "Novo Produto", Price: 49.90})
	require.NoError(t, err)
	assert.Equal(t, "prod_fixed", saved.ID)
	assert.Len(t, s.List(ctx), 4)
	assert.Equal(t, 1, syncer.calls)

	// 覆盖：相同 ID 不新增
	saved.Price = 59.90
	_, err = s.Save(ctx, saved)
	require.NoError(t, err)
	products := s.List(ctx)
	assert.Len(t, products, 4)
	for _, p := range products {
		if p.ID == "prod_fixed" {
			assert.Equal(t, 59.90, p.Price)
		}
	}
	assert.Equal(t, 2, syncer.calls)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s, _, syncer := newTestService(t)

	require.Len(t, s.List(ctx), 3)

	require.NoError(t, s.Delete(ctx, "frp_premium"))
	products := s.List(ctx)
	assert.Len(t, products, 2)
	for _, p := range products {
		assert.NotEqual(t, "frp_premium", p.ID)
	}
	assert.Equal(t, 1, syncer.calls)

	// 不存在的 ID：空操作，不触发同步
	require.NoError(t, s.Delete(ctx, "nope"))
	assert.Equal(t, 1, syncer.calls)
}

func TestAddToCart(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)

	item, err := s.AddToCart(ctx, "frp_premium")
	require.NoError(t, err)
	assert.Equal(t, "frp_premium", item.ID)
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, int64(1717243200000), item.AddedAt)

	// 重复加购累加数量
	item, err = s.AddToCart(ctx, "frp_premium")
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)

	cart := s.Cart(ctx)
	require.Len(t, cart, 1)
	assert.Equal(t, 2, cart[0].Quantity)

	// 不同商品追加新条目
	_, err = s.AddToCart(ctx, "subscription_30")
	require.NoError(t, err)
	assert.Len(t, s.Cart(ctx), 2)
}

func TestAddToCart_UnknownProduct(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)

	_, err := s.AddToCart(ctx, "ghost")
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))
}

// TestCart_CorruptRecovered 损坏的购物车按空处理
func TestCart_CorruptRecovered(t *testing.T) {
	ctx := context.Background()
	s, reg, _ := newTestService(t)

	require.NoError(t, reg.Set(ctx, model.KeyShoppingCart, "{corrupt"))
	assert.Nil(t, s.Cart(ctx))
}

// TestNoSyncer syncer 为 nil 时变更仍持久化，只是不广播
func TestNoSyncer(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewHub().Attach("test")
	s := NewService(reg, logging.Default("catalog-test"), nil)

	_, err := s.Save(ctx, model.ProductRecord{ID: "p1", Name: "X", Price: 1})
	require.NoError(t, err)
	assert.Len(t, s.List(ctx), 4)
}
