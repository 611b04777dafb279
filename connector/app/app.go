package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/namanjh/socket-huddlegames/common/config"
	"github.com/namanjh/socket-huddlegames/common/log"
	"github.com/namanjh/socket-huddlegames/core/container"
)

// Run 启动 connector 节点，收到中断信号或 ctx 取消后优雅关闭
func Run(ctx context.Context, cfg *config.Config, identifier string) error {
	connectorContainer, err := container.NewConnectorContainer(cfg, identifier)
	if err != nil {
		return err
	}
	defer connectorContainer.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	connectorContainer.Start(ctx)

	server := connectorContainer.GetHttpServer()
	serverErr := make(chan error, 1)
	go func() {
		log.Info("启动 HTTP 服务器，地址: %s，长连接路径: %s", server.Addr(), cfg.Socket.Path)
		serverErr <- server.Start()
	}()

	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP 服务器关闭失败: %v", err)
		} else {
			log.Info("HTTP 服务器已优雅关闭")
		}
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(c)
	for {
		select {
		case <-ctx.Done():
			stop()
			return nil
		case err := <-serverErr:
			if err != nil {
				log.Error("HTTP 服务器启动失败: %v", err)
			}
			return err
		case s := <-c:
			switch s {
			case syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT:
				stop()
				log.Info("中断信号，服务停止")
				return nil
			case syscall.SIGHUP:
				stop()
				log.Info("挂起信号，服务停止")
				return nil
			default:
				return nil
			}
		}
	}
}
