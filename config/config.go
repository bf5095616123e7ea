package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"lanarena/endpoint"
)

// EnvPrefix 所有环境变量覆盖项的前缀
const EnvPrefix = "LANARENA_"

// Config 节点启动所需的全部配置
type Config struct {
	Host  string // 本地绑定地址，空表示通配地址
	Group string // 组播地址，只接受数字形式
	Port  int
	TTL   int

	// LocalID 线上标识本节点；0 表示随机选取
	LocalID int

	ReceiveTimeout   time.Duration
	QueueCapacity    int
	RegistryCapacity int
	EvictAfter       time.Duration
	TickInterval     time.Duration
	Friction         float64

	TileLength int
	MapFile    string // 空则使用内置地图

	AdminAddr string // 空则不启动管理 HTTP 服务
	LogFile   string
	LogLevel  string
}

// Default 返回协议默认值
func Default() Config {
	return Config{
		Group:            "224.0.0.1",
		Port:             7000,
		TTL:              10,
		ReceiveTimeout:   200 * time.Millisecond,
		QueueCapacity:    64,
		RegistryCapacity: 100,
		EvictAfter:       3 * time.Second,
		TickInterval:     16 * time.Millisecond,
		Friction:         0.95,
		TileLength:       32,
		AdminAddr:        ":8080",
		LogFile:          "lanarena.log",
		LogLevel:         "info",
	}
}

// Load 在默认值基础上加载 .env（存在时），再应用 LANARENA_* 环境变量
// 非法值保留默认值，并作为 warning 返回给调用方记录日志
func Load(envFiles ...string) (Config, []error) {
	var warnings []error
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		warnings = append(warnings, fmt.Errorf("load env file: %w", err))
	}
	cfg := Default()
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		raw, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			return
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, name, raw, err))
			return
		}
		*dst = v
	}
	dur := func(name string, dst *time.Duration) {
		raw, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			return
		}
		v, err := time.ParseDuration(raw)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, name, raw, err))
			return
		}
		*dst = v
	}

	str("HOST", &cfg.Host)
	str("GROUP", &cfg.Group)
	num("PORT", &cfg.Port)
	num("TTL", &cfg.TTL)
	num("LOCAL_ID", &cfg.LocalID)
	dur("RECEIVE_TIMEOUT", &cfg.ReceiveTimeout)
	num("QUEUE_CAPACITY", &cfg.QueueCapacity)
	num("REGISTRY_CAPACITY", &cfg.RegistryCapacity)
	dur("EVICT_AFTER", &cfg.EvictAfter)
	dur("TICK_INTERVAL", &cfg.TickInterval)
	num("TILE_LENGTH", &cfg.TileLength)
	str("MAP_FILE", &cfg.MapFile)
	str("ADMIN_ADDR", &cfg.AdminAddr)
	str("LOG_FILE", &cfg.LogFile)
	str("LOG_LEVEL", &cfg.LogLevel)
	if raw, ok := os.LookupEnv(EnvPrefix + "FRICTION"); ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			cfg.Friction = v
		} else {
			warnings = append(warnings, fmt.Errorf("invalid %sFRICTION=%q: %w", EnvPrefix, raw, err))
		}
	}
	return cfg, warnings
}

// GroupEndpoint 组播地址 + 端口
func (c Config) GroupEndpoint() (endpoint.Endpoint, error) {
	ep, err := endpoint.Parse(c.Group)
	if err != nil {
		return endpoint.Endpoint{}, err
	}
	return ep.WithPort(uint16(c.Port)), nil
}

// Validate 返回第一个不可用的配置项
func (c Config) Validate() error {
	group, err := c.GroupEndpoint()
	if err != nil {
		return fmt.Errorf("group: %w", err)
	}
	if !group.IsMulticast() {
		return fmt.Errorf("group %q is not a multicast address", c.Group)
	}
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("port %d out of range", c.Port)
	case c.LocalID < 0 || c.LocalID > 255:
		return fmt.Errorf("local id %d out of range 0-255", c.LocalID)
	case c.QueueCapacity <= 0:
		return fmt.Errorf("queue capacity must be positive, got %d", c.QueueCapacity)
	case c.RegistryCapacity <= 0:
		return fmt.Errorf("registry capacity must be positive, got %d", c.RegistryCapacity)
	case c.ReceiveTimeout <= 0:
		return fmt.Errorf("receive timeout must be positive, got %v", c.ReceiveTimeout)
	case c.EvictAfter <= 0:
		return fmt.Errorf("eviction threshold must be positive, got %v", c.EvictAfter)
	case c.TickInterval <= 0:
		return fmt.Errorf("tick interval must be positive, got %v", c.TickInterval)
	case c.Friction <= 0 || c.Friction >= 1:
		return fmt.Errorf("friction %v must be in (0,1)", c.Friction)
	case c.TileLength < 4:
		return fmt.Errorf("tile length %d too small", c.TileLength)
	}
	return nil
}
