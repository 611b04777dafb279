package container

import (
	"context"
	"fmt"
	"time"

	"github.com/namanjh/socket-huddlegames/common/config"
	"github.com/namanjh/socket-huddlegames/common/http"
	"github.com/namanjh/socket-huddlegames/common/log"
	"github.com/namanjh/socket-huddlegames/common/utils"
	"github.com/namanjh/socket-huddlegames/connector/api"
	"github.com/namanjh/socket-huddlegames/core/infrastructure/cache"
	"github.com/namanjh/socket-huddlegames/core/infrastructure/message/node"
	"github.com/namanjh/socket-huddlegames/core/infrastructure/realtime"
	"github.com/namanjh/socket-huddlegames/runtime/conn"
	"github.com/namanjh/socket-huddlegames/runtime/game"
)

// ConnectorContainer 组装 connector 节点的全部组件
// 连接层 -> 事件循环 -> 注册表 -> 观察者（缓存、redis 镜像、nats 推送）
type ConnectorContainer struct {
	*BaseContainer
	cfg    *config.Config
	nodeID string

	connWorker *conn.Worker
	registry   *game.Registry
	roomWorker *game.Worker
	cache      *cache.RoomSnapshotCache
	mirror     *realtime.RoomMirror
	natsWorker *node.NatsWorker
	monitor    *game.Monitor
	server     *http.HttpServer
}

func NewConnectorContainer(cfg *config.Config, nodeID string) (*ConnectorContainer, error) {
	base, err := NewBase(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("基础容器初始化失败: %w", err)
	}
	if nodeID == "" {
		nodeID = cfg.AppName
	}
	c := &ConnectorContainer{BaseContainer: base, cfg: cfg, nodeID: nodeID}

	snapshotCache, err := cache.NewRoomSnapshotCache(cfg.Cache.MaxCost, time.Duration(cfg.Cache.Ttl)*time.Second)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.cache = snapshotCache

	limiter := utils.NewRateLimiter(cfg.Socket.ConnectRate, cfg.Socket.ConnectBurst)
	c.connWorker = conn.NewWorker(cfg.Socket, cfg.Cors, conn.WithRateLimiter(limiter))

	c.registry = game.NewRegistry(c.connWorker, cfg.Room.StartGamePolicy)
	c.registry.AddObserver(c.cache)
	c.roomWorker = game.NewWorker(c.registry, c.connWorker, cfg.Room.EventBuffer)
	c.connWorker.SetDispatcher(c.roomWorker)

	if redis := base.GetRedis(); redis != nil {
		repo := realtime.NewRedisRoomSnapshotRepository(redis, cfg.Redis.KeyPrefix)
		c.mirror = realtime.NewRoomMirror(repo, time.Duration(cfg.Redis.Ttl)*time.Second, cfg.Redis.QueueSize)
		c.registry.AddObserver(c.mirror)
	}

	if cfg.Nats.Enabled {
		c.natsWorker = node.NewNatsWorker()
		c.natsWorker.RegisterHandlers(node.ControlHandlers(c.roomWorker))
		if err := c.natsWorker.Run(cfg.Nats.URL, cfg.Nats.Subject+".control"); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("nats 启动失败: %w", err)
		}
		c.registry.AddObserver(node.NewRoomPublisher(c.natsWorker, c.nodeID, cfg.Nats.Subject+".events"))
		log.Info("nats 桥接已启动, subject=%s", cfg.Nats.Subject)
	}

	c.monitor = game.NewMonitor(c.roomWorker, time.Duration(cfg.Monitor.Interval)*time.Second)
	c.server = c.newHttpServer()
	return c, nil
}

func (c *ConnectorContainer) newHttpServer() *http.HttpServer {
	mode := "release"
	if c.cfg.Log.Level == "debug" {
		mode = "debug"
	}
	server := http.NewHttpServer(
		http.WithPort(c.cfg.Port),
		http.WithMode(mode),
	)
	server.Use(
		http.CorsMiddleware(c.cfg.Cors.AllowOrigins, c.cfg.Cors.AllowMethods),
		http.LoggerMiddleware(),
	)
	handler := api.NewHandler(c.nodeID, c.roomWorker, c.cache, c.monitor, c.connWorker)
	api.RegisterRoutes(server, handler, c.cfg.Socket.Path, c.connWorker.ServeWS)
	return server
}

// Start 启动后台协程，ctx 取消后全部退出
func (c *ConnectorContainer) Start(ctx context.Context) {
	c.roomWorker.Start(ctx)
	if c.mirror != nil {
		c.mirror.Start(ctx)
	}
	go c.monitor.Start(ctx)
}

func (c *ConnectorContainer) GetHttpServer() *http.HttpServer {
	return c.server
}

func (c *ConnectorContainer) GetConnWorker() *conn.Worker {
	return c.connWorker
}

func (c *ConnectorContainer) GetRoomWorker() *game.Worker {
	return c.roomWorker
}

// Close 先断开所有连接，再停止事件循环和观察者
func (c *ConnectorContainer) Close() error {
	if c.connWorker != nil {
		c.connWorker.Close()
	}
	if c.roomWorker != nil {
		c.roomWorker.Close()
	}
	if c.monitor != nil {
		c.monitor.Stop()
	}
	if c.mirror != nil {
		c.mirror.Close()
	}
	if c.natsWorker != nil {
		c.natsWorker.Close()
	}
	if c.cache != nil {
		c.cache.Close()
	}
	return c.BaseContainer.Close()
}
