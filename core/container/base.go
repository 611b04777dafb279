package container

import (
	"github.com/namanjh/socket-huddlegames/common/config"
	"github.com/namanjh/socket-huddlegames/common/database"
	"github.com/namanjh/socket-huddlegames/common/log"
)

// BaseContainer 基础容器，管理共享的外部连接
// redis 未启用时为 nil
type BaseContainer struct {
	redis *database.RedisManager
}

// NewBase 创建基础容器并初始化已启用的外部依赖
func NewBase(conf config.RedisConf) (*BaseContainer, error) {
	base := &BaseContainer{}
	if !conf.Enabled {
		return base, nil
	}
	redis, err := database.NewRedis(conf)
	if err != nil {
		return nil, err
	}
	log.Info("redis 服务连接成功")
	base.redis = redis
	return base, nil
}

// GetRedis 获取 Redis 管理器
func (c *BaseContainer) GetRedis() *database.RedisManager {
	return c.redis
}

// Close 关闭所有资源
func (c *BaseContainer) Close() error {
	if c.redis == nil {
		return nil
	}
	if err := c.redis.Close(); err != nil {
		log.Error("redis 关闭失败: %v", err)
		return err
	}
	return nil
}
