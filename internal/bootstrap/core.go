package bootstrap

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/yuqie6/HoursTracker/internal/eventbus"
	"github.com/yuqie6/HoursTracker/internal/observability/metrics"
	"github.com/yuqie6/HoursTracker/internal/pkg/config"
	"github.com/yuqie6/HoursTracker/internal/repository"
	"github.com/yuqie6/HoursTracker/internal/service"
)

// Core 持有跨二进制共享的核心依赖
type Core struct {
	Cfg       *config.Config
	CfgPath   string
	DB        *repository.Database
	LogCloser io.Closer
	Calendar  *service.Calendar
	Hub       *eventbus.Hub
	Metrics   *metrics.HoursMetrics
	Registry  *prometheus.Registry
	StartedAt time.Time

	Repos struct {
		Skill       *repository.SkillRepository
		PracticeLog *repository.PracticeLogRepository
		Milestone   *repository.MilestoneRepository
	}

	Services struct {
		Charts     *service.ChartService
		Milestones *service.MilestoneService
		Skills     *service.SkillService
		Logs       *service.PracticeLogService
	}
}

// NewCore 构建核心依赖（不启动 HTTP 与定时任务）
func NewCore(cfgPath string) (*Core, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logCloser, _ := config.SetupLogger(config.LoggerOptions{
		Level:     cfg.App.LogLevel,
		Path:      cfg.App.LogPath,
		Component: filepath.Base(os.Args[0]),
	})

	calendar, err := service.NewCalendar(cfg.App.Timezone)
	if err != nil {
		closeQuietly(logCloser)
		return nil, err
	}

	db, err := repository.NewDatabase(repository.StorageOptions{
		Driver: cfg.Storage.Driver,
		DBPath: cfg.Storage.DBPath,
		DSN:    cfg.Storage.DSN,
	})
	if err != nil {
		closeQuietly(logCloser)
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewHoursMetrics(registry)
	if err != nil {
		_ = db.Close()
		closeQuietly(logCloser)
		return nil, fmt.Errorf("注册指标失败: %w", err)
	}

	c := &Core{
		Cfg:       cfg,
		CfgPath:   cfgPath,
		DB:        db,
		LogCloser: logCloser,
		Calendar:  calendar,
		Hub:       eventbus.NewHub(),
		Metrics:   m,
		Registry:  registry,
		StartedAt: time.Now(),
	}

	// Repos
	c.Repos.Skill = repository.NewSkillRepository(db.DB)
	c.Repos.PracticeLog = repository.NewPracticeLogRepository(db.DB)
	c.Repos.Milestone = repository.NewMilestoneRepository(db.DB)

	// Services
	ttl := time.Duration(cfg.Chart.CacheTTLSec) * time.Second
	c.Services.Charts = service.NewChartService(c.Repos.PracticeLog, calendar, ttl, m)
	c.Services.Milestones = service.NewMilestoneService(
		c.Repos.Skill,
		c.Repos.PracticeLog,
		c.Repos.Milestone,
		calendar,
		c.Hub,
		m,
	)
	c.Services.Skills = service.NewSkillService(c.Repos.Skill, c.Repos.PracticeLog, c.Repos.Milestone, c.Services.Charts)
	c.Services.Logs = service.NewPracticeLogService(
		c.Repos.Skill,
		c.Repos.PracticeLog,
		c.Services.Milestones,
		c.Services.Charts,
		calendar,
		c.Hub,
		m,
	)

	return c, nil
}

// Close 关闭核心依赖资源
func (c *Core) Close() error {
	if c == nil {
		return nil
	}
	var dbErr error
	if c.DB != nil {
		dbErr = c.DB.Close()
	}
	closeQuietly(c.LogCloser)
	return dbErr
}

// RequireWritable 安全模式（迁移失败）下拒绝写操作
func (c *Core) RequireWritable() error {
	if c.DB != nil && c.DB.SafeMode {
		return fmt.Errorf("数据库处于安全模式: %s", c.DB.MigrationError)
	}
	return nil
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
