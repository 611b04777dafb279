package main

import (
	"context"
	"fmt"
	"os"

	"github.com/namanjh/socket-huddlegames/common/config"
	"github.com/namanjh/socket-huddlegames/common/log"
	"github.com/namanjh/socket-huddlegames/common/metrics"
	"github.com/namanjh/socket-huddlegames/connector/app"

	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
	identifier string
)

var rootCmd = &cobra.Command{
	Use:   "connector",
	Short: "connector 房间长连接服务",
	Long:  `connector 房间长连接服务，转发加入房间、开局、分队和断线事件`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configFile)
		if err != nil {
			log.Fatal("文件配置发生错误：%v", err)
		}
		if cmd.Flags().Changed("logLevel") {
			cfg.Log.Level = logLevel
		}
		if identifier == "" {
			identifier = cfg.AppName
		}
		log.InitLog(identifier, cfg.Log.Level)
		log.Info("配置文件: %+v", *cfg)

		cfg.Watch(func(level string) {
			log.SetLevel(level)
			log.Info("日志级别已更新: %s", level)
		})

		if cfg.MetricPort > 0 {
			go func() {
				log.Info("启动监控..., URL: http://localhost:%d/debug/statsviz/", cfg.MetricPort)
				if err := metrics.Serve(fmt.Sprintf("0.0.0.0:%d", cfg.MetricPort)); err != nil {
					log.Error("监控服务启动失败: %v", err)
				}
			}()
		}

		if err := app.Run(context.Background(), cfg, identifier); err != nil {
			log.Error("发生异常: %v", err)
			os.Exit(-1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "resource", "", "resource file, e.g. resource/application.yml")
	rootCmd.Flags().StringVar(&logLevel, "logLevel", "info", "log level: debug, info, warn, error")
	rootCmd.Flags().StringVar(&identifier, "identifier", "", "node identifier used in logs and nats events")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("error happen: %#v", err)
		os.Exit(1)
	}
}
