// Package config 统一配置管理
//
// 配置加载策略：
//  1. 从 .env 加载 APP_ENV 与连接串等敏感信息
//  2. 根据 APP_ENV 加载对应的 configs/{env}.yaml 配置文件
//  3. 环境变量可覆盖 YAML 配置
//
// 使用方式：
//   - 开发环境: APP_ENV=dev (默认)
//   - 测试环境: APP_ENV=test
//   - 生产环境: APP_ENV=prod
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// RegistryBackend 注册表后端类型
type RegistryBackend string

const (
	BackendMemory   RegistryBackend = "memory"
	BackendSQLite   RegistryBackend = "sqlite"
	BackendRedis    RegistryBackend = "redis"
	BackendEtcd     RegistryBackend = "etcd"
	BackendPostgres RegistryBackend = "postgres"
)

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	Panel    PanelConfig    `yaml:"panel"`
	Registry RegistryConfig `yaml:"registry"`
	Sync     SyncConfig     `yaml:"sync"`
	Log      LogConfig      `yaml:"log"`
}

// PanelConfig 站点级常量
type PanelConfig struct {
	SiteName        string   `yaml:"site_name"`
	Version         string   `yaml:"version"`
	DefaultTheme    string   `yaml:"default_theme"`
	Currency        string   `yaml:"currency"`
	EnabledModules  []string `yaml:"enabled_modules"`
	AdminRoles      []string `yaml:"admin_roles"`
	PremiumFeatures []string `yaml:"premium_features"`
}

// RegistryConfig 注册表后端配置
type RegistryConfig struct {
	Backend  RegistryBackend `yaml:"backend"`
	SQLite   SQLiteConfig    `yaml:"sqlite"`
	Redis    RedisConfig     `yaml:"redis"`
	Etcd     EtcdConfig      `yaml:"etcd"`
	Postgres PostgresConfig  `yaml:"postgres"`
}

// Duration time.Duration 的 YAML 包装，接受 "30s"/"1m" 形式
type Duration time.Duration

// UnmarshalYAML 实现 yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

type SQLiteConfig struct {
	DSN          string   `yaml:"dsn"`
	PollInterval Duration `yaml:"poll_interval"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type EtcdConfig struct {
	Endpoints []string `yaml:"endpoints"`
	Prefix    string   `yaml:"prefix"`
}

type PostgresConfig struct {
	URL string `yaml:"url"`
}

// SyncConfig 同步协调器配置
type SyncConfig struct {
	Interval Duration `yaml:"interval"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env      Environment
	Panel    PanelConfig
	Registry RegistryConfig
	Sync     SyncConfig
	Log      LogConfig
}

var configPaths = []string{
	"configs",
	"../configs",
	"../../configs",
	"../../../configs",
}

var envPaths = []string{
	".env",
	"../.env",
	"../../.env",
}

// Default 默认配置（YAML 缺失时的兜底）
func Default() Config {
	return Config{
		Env: EnvDevelopment,
		Panel: PanelConfig{
			SiteName:        "JPCELLFRP PRO",
			Version:         "2.1.0",
			DefaultTheme:    "dark",
			Currency:        "BRL",
			EnabledModules:  []string{"frp", "imei", "shop", "support", "updates"},
			AdminRoles:      []string{"admin", "superadmin"},
			PremiumFeatures: []string{"frp_unlock", "imei_unlock", "priority_support", "advanced_tools"},
		},
		Registry: RegistryConfig{
			Backend: BackendSQLite,
			SQLite: SQLiteConfig{
				DSN:          "file:panel.db?cache=shared&mode=rwc",
				PollInterval: Duration(time.Second),
			},
			Redis: RedisConfig{URL: "redis://localhost:6379/0"},
			Etcd:  EtcdConfig{Endpoints: []string{"localhost:2379"}, Prefix: "/panel"},
		},
		Sync: SyncConfig{Interval: Duration(30 * time.Second)},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// Load 加载配置
func Load() (Config, error) {
	loadDotEnv()

	cfg := Default()
	cfg.Env = currentEnv()

	if path := findConfigFile(cfg.Env); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		var yml YAMLConfig
		if err := yaml.Unmarshal(data, &yml); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		merge(&cfg, yml)
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func loadDotEnv() {
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func currentEnv() Environment {
	switch Environment(os.Getenv("APP_ENV")) {
	case EnvProduction:
		return EnvProduction
	case EnvTest:
		return EnvTest
	default:
		return EnvDevelopment
	}
}

func findConfigFile(env Environment) string {
	for _, dir := range configPaths {
		path := filepath.Join(dir, string(env)+".yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// merge 非零的 YAML 字段覆盖默认值
func merge(cfg *Config, yml YAMLConfig) {
	if yml.Panel.SiteName != "" {
		cfg.Panel.SiteName = yml.Panel.SiteName
	}
	if yml.Panel.Version != "" {
		cfg.Panel.Version = yml.Panel.Version
	}
	if yml.Panel.DefaultTheme != "" {
		cfg.Panel.DefaultTheme = yml.Panel.DefaultTheme
	}
	if yml.Panel.Currency != "" {
		cfg.Panel.Currency = yml.Panel.Currency
	}
	if len(yml.Panel.EnabledModules) > 0 {
		cfg.Panel.EnabledModules = yml.Panel.EnabledModules
	}
	if len(yml.Panel.AdminRoles) > 0 {
		cfg.Panel.AdminRoles = yml.Panel.AdminRoles
	}
	if len(yml.Panel.PremiumFeatures) > 0 {
		cfg.Panel.PremiumFeatures = yml.Panel.PremiumFeatures
	}

	if yml.Registry.Backend != "" {
		cfg.Registry.Backend = yml.Registry.Backend
	}
	if yml.Registry.SQLite.DSN != "" {
		cfg.Registry.SQLite.DSN = yml.Registry.SQLite.DSN
	}
	if yml.Registry.SQLite.PollInterval > 0 {
		cfg.Registry.SQLite.PollInterval = yml.Registry.SQLite.PollInterval
	}
	if yml.Registry.Redis.URL != "" {
		cfg.Registry.Redis.URL = yml.Registry.Redis.URL
	}
	if len(yml.Registry.Etcd.Endpoints) > 0 {
		cfg.Registry.Etcd.Endpoints = yml.Registry.Etcd.Endpoints
	}
	if yml.Registry.Etcd.Prefix != "" {
		cfg.Registry.Etcd.Prefix = yml.Registry.Etcd.Prefix
	}
	if yml.Registry.Postgres.URL != "" {
		cfg.Registry.Postgres.URL = yml.Registry.Postgres.URL
	}

	if yml.Sync.Interval > 0 {
		cfg.Sync.Interval = yml.Sync.Interval
	}
	if yml.Log.Level != "" {
		cfg.Log.Level = yml.Log.Level
	}
	if yml.Log.Format != "" {
		cfg.Log.Format = yml.Log.Format
	}
}

// applyEnvOverrides 环境变量覆盖
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REGISTRY_BACKEND"); v != "" {
		cfg.Registry.Backend = RegistryBackend(v)
	}
	if v := os.Getenv("SQLITE_DSN"); v != "" {
		cfg.Registry.SQLite.DSN = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Registry.Redis.URL = v
	}
	if v := os.Getenv("ETCD_ENDPOINTS"); v != "" {
		cfg.Registry.Etcd.Endpoints = strings.Split(v, ",")
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Registry.Postgres.URL = v
	}
	if v := os.Getenv("SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Sync.Interval = Duration(d)
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
