package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuqie6/HoursTracker/internal/bootstrap"
	"github.com/yuqie6/HoursTracker/internal/httpapi"
	"github.com/yuqie6/HoursTracker/internal/pkg/buildinfo"
	"github.com/yuqie6/HoursTracker/internal/pkg/config"
)

func main() {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:     "hours-server",
		Short:   "HoursTracker HTTP 服务",
		Version: buildinfo.String(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfgFile)
		},
		SilenceUsage: true,
	}
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径（默认 <exe>/config/config.yaml）")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	if cfgPath == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return err
		}
		cfgPath = p
		if created, err := config.EnsureFile(cfgPath); err != nil {
			slog.Warn("写入默认配置失败", "path", cfgPath, "error", err)
		} else if created {
			slog.Info("已生成默认配置", "path", cfgPath)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	core, err := bootstrap.NewCore(cfgPath)
	if err != nil {
		slog.Error("初始化失败", "error", err)
		return err
	}
	defer core.Close()

	slog.Info("HoursTracker 启动中...", "name", core.Cfg.App.Name, "version", buildinfo.String(), "timezone", core.Calendar.Location().String())

	srv, err := httpapi.Start(ctx, core, httpapi.Options{
		ListenAddr:    core.Cfg.Server.ListenAddr,
		JWTSecret:     core.Cfg.Auth.JWTSecret,
		DevUserHeader: core.Cfg.Auth.DevUserHeader,
	})
	if err != nil {
		slog.Error("启动 HTTP 服务失败", "error", err)
		return err
	}

	reconciler, err := bootstrap.NewReconciler(core.Cfg.Milestones.ReconcileCron, core.Calendar.Location(), core.Services.Milestones)
	if err != nil {
		slog.Error("启动里程碑对账失败", "error", err)
		return err
	}
	if reconciler != nil {
		reconciler.Start()
		slog.Info("里程碑对账已启用", "cron", core.Cfg.Milestones.ReconcileCron)
	}

	// 只热更新日志级别；其余配置需重启生效
	if err := config.Watch(cfgPath, func(cfg *config.Config) {
		config.SetLogLevel(cfg.App.LogLevel)
		slog.Info("日志级别已更新", "level", cfg.App.LogLevel)
	}); err != nil {
		slog.Warn("配置热更新不可用", "error", err)
	}

	<-ctx.Done()
	slog.Info("正在关闭...")

	if reconciler != nil {
		<-reconciler.Stop().Done()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP 服务关闭异常", "error", err)
	}
	slog.Info("HoursTracker 已退出")
	return nil
}
