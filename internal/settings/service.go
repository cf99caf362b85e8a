// Package settings 管理端界面配置
//
// 配置变更与商品一样不做权限校验（调用方界面层负责），属已记录的
// 设计缺口。
package settings

import (
	"context"

	"github.com/containerd/errdefs"

	"unlock-admin/internal/shared/model"
	"unlock-admin/internal/shared/registry"
	"unlock-admin/pkg/logging"
)

// Service 配置服务
type Service struct {
	reg registry.Registry
	log *logging.Logger
}

// NewService 创建配置服务
func NewService(reg registry.Registry, log *logging.Logger) *Service {
	return &Service{reg: reg, log: log}
}

// Get 当前配置；缺失或损坏返回零值默认
func (s *Service) Get(ctx context.Context) model.AdminSettings {
	var settings model.AdminSettings
	if err := registry.GetJSON(ctx, s.reg, model.KeySettings, &settings); err != nil {
		if !errdefs.IsNotFound(err) {
			s.log.WithError(err).Warn("Admin settings unreadable, using defaults")
		}
		return model.AdminSettings{}
	}
	return settings
}

// Update 覆盖写入配置；settings_sync 快照由同步协调器的下个周期生成
func (s *Service) Update(ctx context.Context, settings model.AdminSettings) error {
	return registry.SetJSON(ctx, s.reg, model.KeySettings, settings)
}
