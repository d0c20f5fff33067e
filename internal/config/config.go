package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// 主配置结构
type Config struct {
	App       App      `yaml:"app"`
	Server    Server   `yaml:"server"`
	Database  DB       `yaml:"database"`
	Cache     Cache    `yaml:"cache"`
	Auth      Auth     `yaml:"auth"`
	RateLimit Limit    `yaml:"rate_limit"`
	Log       Log      `yaml:"log"`
	Geo       Geo      `yaml:"geo"`
	Recorder  Recorder `yaml:"recorder"`
}

// 应用配置
type App struct {
	Name    string `yaml:"name"`
	Mode    string `yaml:"mode"`
	Version string `yaml:"version"`
	// 公开页面地址前缀，二维码扫描后跳转到 {PublicBaseURL}/{slug}
	PublicBaseURL string `yaml:"public_base_url"`
}

// 服务器配置
type Server struct {
	Port            int `yaml:"port"`
	ReadTimeout     int `yaml:"read_timeout"`
	WriteTimeout    int `yaml:"write_timeout"`
	ShutdownTimeout int `yaml:"shutdown_timeout"`

	// TrustedProxies 可信反向代理的 IP 或 CIDR，只采信它们转发的 X-Forwarded-For；为空时只认连接地址
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// 数据库配置
type DB struct {
	Driver   string `yaml:"driver"` // mysql 或 sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
	Path     string `yaml:"path"` // sqlite 文件路径
}

// 缓存配置（Redis）
type Cache struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	TargetTTLHours int    `yaml:"target_ttl_hours"`
}

// 认证配置
type Auth struct {
	Secret          string `yaml:"secret"`
	Issuer          string `yaml:"issuer"`
	ExpirationHours int    `yaml:"expiration_hours"`
}

// 限流配置
type Limit struct {
	Enabled   bool     `yaml:"enabled"`
	Requests  int64    `yaml:"requests_per_minute"`
	Burst     int64    `yaml:"burst"`
	SkipPaths []string `yaml:"skip_paths"`
}

// 日志配置
type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// 地理位置解析配置
type Geo struct {
	DatabasePath    string `yaml:"database_path"` // MaxMind GeoLite2-City.mmdb
	Language        string `yaml:"language"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	CacheMaxEntries int64  `yaml:"cache_max_entries"`
	LookupTimeoutMS int    `yaml:"lookup_timeout_ms"`
	// 开启后解析结果同时写入 Redis，多实例共享
	SharedCache bool `yaml:"shared_cache"`
}

// 事件记录配置
type Recorder struct {
	QueueSize       int `yaml:"queue_size"`
	BatchSize       int `yaml:"batch_size"`
	FlushIntervalMS int `yaml:"flush_interval_ms"`
	RecordTimeoutMS int `yaml:"record_timeout_ms"`
}

// CacheTTL 解析结果缓存时长
func (g Geo) CacheTTL() time.Duration {
	return time.Duration(g.CacheTTLSeconds) * time.Second
}

// LookupTimeout 单次解析的最长等待
func (g Geo) LookupTimeout() time.Duration {
	return time.Duration(g.LookupTimeoutMS) * time.Millisecond
}

// FlushInterval 批量写入的最长间隔
func (r Recorder) FlushInterval() time.Duration {
	return time.Duration(r.FlushIntervalMS) * time.Millisecond
}

// RecordTimeout 单条事件解析 + 写入的超时
func (r Recorder) RecordTimeout() time.Duration {
	return time.Duration(r.RecordTimeoutMS) * time.Millisecond
}

// TargetTTL 外链跳转目标在 Redis 中的缓存时长
func (c Cache) TargetTTL() time.Duration {
	return time.Duration(c.TargetTTLHours) * time.Hour
}

// 加载配置
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse 解析 YAML 内容，补齐默认值并校验
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "muslink"
	}
	if c.App.Mode == "" {
		c.App.Mode = "debug"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}
	if c.Cache.TargetTTLHours == 0 {
		c.Cache.TargetTTLHours = 24
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" {
		c.Log.File = "./logs/app.log"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 30
	}
	if c.Geo.Language == "" {
		c.Geo.Language = "en"
	}
	if c.Geo.CacheTTLSeconds == 0 {
		c.Geo.CacheTTLSeconds = 3600
	}
	if c.Geo.CacheMaxEntries == 0 {
		c.Geo.CacheMaxEntries = 100000
	}
	if c.Geo.LookupTimeoutMS == 0 {
		c.Geo.LookupTimeoutMS = 200
	}
	if c.Recorder.QueueSize == 0 {
		c.Recorder.QueueSize = 4096
	}
	if c.Recorder.BatchSize == 0 {
		c.Recorder.BatchSize = 100
	}
	if c.Recorder.FlushIntervalMS == 0 {
		c.Recorder.FlushIntervalMS = 500
	}
	if c.Recorder.RecordTimeoutMS == 0 {
		c.Recorder.RecordTimeoutMS = 3000
	}
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver 不支持: %q", c.Database.Driver))
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		errs = append(errs, errors.New("database.path 在 sqlite 模式下必填"))
	}
	if c.Geo.CacheTTLSeconds < 0 {
		errs = append(errs, errors.New("geo.cache_ttl_seconds 不能为负数"))
	}
	if c.Geo.LookupTimeoutMS < 0 {
		errs = append(errs, errors.New("geo.lookup_timeout_ms 不能为负数"))
	}
	if c.Recorder.QueueSize < 0 || c.Recorder.BatchSize < 0 {
		errs = append(errs, errors.New("recorder.queue_size / batch_size 不能为负数"))
	}
	for _, p := range c.Server.TrustedProxies {
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			errs = append(errs, fmt.Errorf("server.trusted_proxies 不是合法的 IP 或 CIDR: %q", p))
		}
	}
	if c.RateLimit.Enabled && c.RateLimit.Requests <= 0 {
		errs = append(errs, errors.New("rate_limit.requests_per_minute 必须大于 0"))
	}
	return errors.Join(errs...)
}
