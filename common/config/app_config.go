package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config connector 节点的全部配置
type Config struct {
	AppName    string      `mapstructure:"appName"`
	Port       int         `mapstructure:"port"`
	MetricPort int         `mapstructure:"metricPort"`
	Log        LogConf     `mapstructure:"log"`
	Cors       CorsConf    `mapstructure:"cors"`
	Socket     SocketConf  `mapstructure:"socket"`
	Room       RoomConf    `mapstructure:"room"`
	Cache      CacheConf   `mapstructure:"cache"`
	Monitor    MonitorConf `mapstructure:"monitor"`
	Redis      RedisConf   `mapstructure:"redis"`
	Nats       NatsConfig  `mapstructure:"nats"`

	v *viper.Viper
}

type LogConf struct {
	Level string `mapstructure:"level"`
}

type CorsConf struct {
	AllowOrigins []string `mapstructure:"allowOrigins"`
	AllowMethods []string `mapstructure:"allowMethods"`
}

// SocketConf 长连接参数，时间单位都是秒
type SocketConf struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"maxConnections"`
	ConnectRate    int    `mapstructure:"connectRate"`
	ConnectBurst   int    `mapstructure:"connectBurst"`
	SendBuffer     int    `mapstructure:"sendBuffer"`
	PongWait       int    `mapstructure:"pongWait"`
	WriteWait      int    `mapstructure:"writeWait"`
	MaxMessageSize int64  `mapstructure:"maxMessageSize"`
}

// StartGamePolicy 空房间收到 start-game 时的处理策略
type StartGamePolicy string

const (
	StartGameAllow  StartGamePolicy = "allow"  // 允许创建孤立的游戏状态
	StartGameReject StartGamePolicy = "reject" // 拒绝，返回 unknown-room
)

type RoomConf struct {
	StartGamePolicy StartGamePolicy `mapstructure:"startGamePolicy"`
	EventBuffer     int             `mapstructure:"eventBuffer"`
}

type CacheConf struct {
	MaxCost int64 `mapstructure:"maxCost"`
	Ttl     int   `mapstructure:"ttl"` // 秒
}

type MonitorConf struct {
	Interval int `mapstructure:"interval"` // 秒
}

type RedisConf struct {
	Enabled      bool     `mapstructure:"enabled"`
	Addr         string   `mapstructure:"addr"`
	ClusterAddrs []string `mapstructure:"clusterAddrs"`
	Password     string   `mapstructure:"password"`
	PoolSize     int      `mapstructure:"poolSize"`
	MinIdleConns int      `mapstructure:"minIdleConns"`
	KeyPrefix    string   `mapstructure:"keyPrefix"`
	Ttl          int      `mapstructure:"ttl"` // 秒
	QueueSize    int      `mapstructure:"queueSize"`
}

type NatsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `json:"url" mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// Load 读取配置文件并合并环境变量
// configFile 为空时只使用默认值和环境变量，PORT 环境变量覆盖 port
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.BindEnv("port", "PORT"); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件出错: %w", err)
		}
	}

	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件出错: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验取值范围
func (cfg *Config) Validate() error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port 取值错误: %d", cfg.Port)
	}
	switch cfg.Room.StartGamePolicy {
	case StartGameAllow, StartGameReject:
	default:
		return fmt.Errorf("room.startGamePolicy 取值错误: %q", cfg.Room.StartGamePolicy)
	}
	if !strings.HasPrefix(cfg.Socket.Path, "/") {
		return fmt.Errorf("socket.path 必须以 / 开头: %q", cfg.Socket.Path)
	}
	if cfg.Redis.Enabled && cfg.Redis.Addr == "" && len(cfg.Redis.ClusterAddrs) == 0 {
		return fmt.Errorf("redis 已启用但没有配置地址")
	}
	if cfg.Nats.Enabled && cfg.Nats.URL == "" {
		return fmt.Errorf("nats 已启用但没有配置 url")
	}
	return nil
}

// Watch 监听配置文件变化，只热更新日志级别
// 其余配置需要重启节点才能生效
func (cfg *Config) Watch(onLogLevel func(level string)) {
	if cfg.v == nil || cfg.v.ConfigFileUsed() == "" {
		return
	}
	cfg.v.OnConfigChange(func(in fsnotify.Event) {
		if !in.Has(fsnotify.Write) && !in.Has(fsnotify.Create) {
			return
		}
		level := cfg.v.GetString("log.level")
		cfg.Log.Level = level
		onLogLevel(level)
	})
	cfg.v.WatchConfig()
}
