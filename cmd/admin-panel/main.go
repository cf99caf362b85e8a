// Package main 面板实例入口
//
// 一个进程承载一个视图（admin 或 dashboard），多个实例通过共享
// 注册表后端同步数据。用 -view 指定本实例视图。
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"unlock-admin/internal/auth"
	"unlock-admin/internal/catalog"
	"unlock-admin/internal/config"
	"unlock-admin/internal/settings"
	"unlock-admin/internal/shared/eventbus"
	"unlock-admin/internal/shared/model"
	"unlock-admin/internal/shared/registry"
	etcdreg "unlock-admin/internal/shared/registry/etcd"
	pgreg "unlock-admin/internal/shared/registry/postgres"
	redisreg "unlock-admin/internal/shared/registry/redis"
	sqlitereg "unlock-admin/internal/shared/registry/sqlite"
	"unlock-admin/internal/support"
	"unlock-admin/internal/syncer"
	"unlock-admin/pkg/logging"
)

func main() {
	view := flag.String("view", "dashboard", "panel view for this instance: admin | dashboard")
	flag.Parse()

	source := model.SourceDashboard
	if *view == string(model.SourceAdmin) {
		source = model.SourceAdmin
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Output:    "stdout",
		Component: "admin-panel",
	}).WithView(string(source))

	log.Printf("Starting panel... [env=%s view=%s backend=%s]", cfg.Env, source, cfg.Registry.Backend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 注册表后端（等价于浏览器的 localStorage + storage 事件）
	origin := fmt.Sprintf("%s-%d", source, os.Getpid())
	reg, err := openRegistry(ctx, cfg, origin)
	if err != nil {
		log.Fatalf("Failed to open registry backend: %v", err)
	}
	defer reg.Close()
	log.Printf("Registry backend ready [origin=%s]", reg.Origin())

	bus := eventbus.New()

	// 认证与权限
	nav := auth.NavigatorFunc(func(v auth.View) {
		log.Printf("[nav] -> %s", v)
	})
	store := auth.NewStore(reg, logger,
		auth.WithNavigator(nav),
		auth.WithAdminRoles(adminRoles(cfg.Panel.AdminRoles)),
	)
	if err := store.Init(ctx); err != nil {
		log.Fatalf("Failed to seed user store: %v", err)
	}
	guard := auth.NewGuard(store, nav, logger)

	// 同步协调器
	metrics := syncer.NewMetrics("panel", string(source), prometheus.DefaultRegisterer)
	coord := syncer.New(reg, bus, source, logger,
		syncer.WithInterval(time.Duration(cfg.Sync.Interval)),
		syncer.WithMetrics(metrics),
	)

	// 登录/注册后立即推送用户快照，其余视图无需等下一个周期
	store.AddHook(func(ctx context.Context, op auth.Operation, _ *model.UserRecord) {
		switch op {
		case auth.OpLogin, auth.OpRegister:
			coord.ForceUserSync(ctx)
		}
	})

	// 业务服务
	products := catalog.NewService(reg, logger, coord)
	tickets := support.NewService(reg, logger)
	prefs := settings.NewService(reg, logger)

	// 启动时的视图准入检查（无会话即重定向）
	if source == model.SourceAdmin {
		if !guard.RequireAdmin(ctx) {
			log.Println("No admin session, waiting for login")
		}
	} else if !guard.RequireAuth(ctx) {
		log.Println("No session, waiting for login")
	}

	log.Printf("Catalog loaded [products=%d]", len(products.List(ctx)))
	log.Printf("Support channel loaded [messages=%d]", len(tickets.List(ctx)))
	log.Printf("Theme: %s", orDefault(prefs.Get(ctx).Theme, cfg.Panel.DefaultTheme))

	bus.Subscribe(eventbus.EventSyncCompleted, func(payload any) {
		if ev, ok := payload.(*model.SyncCompletedEvent); ok {
			logger.Debug("sync completed", "source", ev.Source, "timestamp", ev.Timestamp)
		}
	})

	if err := coord.Start(ctx); err != nil {
		log.Fatalf("Failed to start sync coordinator: %v", err)
	}
	log.Printf("Sync coordinator started [interval=%s]", time.Duration(cfg.Sync.Interval))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	coord.Stop()
	cancel()
	fmt.Println("Panel stopped")
}

// openRegistry 根据配置选择注册表后端
func openRegistry(ctx context.Context, cfg config.Config, origin string) (registry.Registry, error) {
	switch cfg.Registry.Backend {
	case config.BackendMemory:
		// 单进程内存后端，仅用于本地试验
		return registry.NewHub().Attach(origin), nil
	case config.BackendSQLite:
		return sqlitereg.Open(sqlitereg.Config{
			DSN:          cfg.Registry.SQLite.DSN,
			Origin:       origin,
			PollInterval: time.Duration(cfg.Registry.SQLite.PollInterval),
		})
	case config.BackendRedis:
		return redisreg.NewStoreFromURL(cfg.Registry.Redis.URL, origin)
	case config.BackendEtcd:
		return etcdreg.NewStore(etcdreg.Config{
			Endpoints:   cfg.Registry.Etcd.Endpoints,
			DialTimeout: 5 * time.Second,
			Prefix:      cfg.Registry.Etcd.Prefix,
			Origin:      origin,
		})
	case config.BackendPostgres:
		return pgreg.NewStore(ctx, cfg.Registry.Postgres.URL, origin)
	default:
		return nil, fmt.Errorf("unknown registry backend %q", cfg.Registry.Backend)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func adminRoles(names []string) []model.UserRole {
	roles := make([]model.UserRole, 0, len(names))
	for _, n := range names {
		roles = append(roles, model.UserRole(n))
	}
	return roles
}
