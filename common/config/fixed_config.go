package config

import "github.com/spf13/viper"

const (
	DefaultPort       = 4000
	DefaultSocketPath = "/socket"
)

// setDefaults 所有配置项的默认值，配置文件可以只写需要覆盖的部分
func setDefaults(v *viper.Viper) {
	v.SetDefault("appName", "huddle-connector")
	v.SetDefault("port", DefaultPort)
	v.SetDefault("metricPort", 0)
	v.SetDefault("log.level", "info")

	v.SetDefault("cors.allowOrigins", []string{"*"})
	v.SetDefault("cors.allowMethods", []string{"GET", "POST"})

	v.SetDefault("socket.path", DefaultSocketPath)
	v.SetDefault("socket.maxConnections", 100000)
	v.SetDefault("socket.connectRate", 100)
	v.SetDefault("socket.connectBurst", 1)
	v.SetDefault("socket.sendBuffer", 256)
	v.SetDefault("socket.pongWait", 60)
	v.SetDefault("socket.writeWait", 10)
	v.SetDefault("socket.maxMessageSize", 64*1024)

	v.SetDefault("room.startGamePolicy", string(StartGameAllow))
	v.SetDefault("room.eventBuffer", 2048)

	v.SetDefault("cache.maxCost", int64(1<<24))
	v.SetDefault("cache.ttl", 300)

	v.SetDefault("monitor.interval", 10)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("redis.minIdleConns", 2)
	v.SetDefault("redis.keyPrefix", "huddle")
	v.SetDefault("redis.ttl", 7200)
	v.SetDefault("redis.queueSize", 1024)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject", "huddle")
}
