package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/yuqie6/HoursTracker/internal/service"
)

// reconcileTimeout 单轮对账的最长时间
const reconcileTimeout = 5 * time.Minute

// NewReconciler 按 cron 表达式周期性重新评估全部技能的里程碑
// spec 为空时返回 nil（不启用）；返回的调度器尚未启动。
func NewReconciler(spec string, loc *time.Location, milestones *service.MilestoneService) (*cron.Cron, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	if milestones == nil {
		return nil, fmt.Errorf("milestones 不能为空")
	}
	if loc == nil {
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
		defer cancel()

		start := time.Now()
		n, err := milestones.ReconcileAll(ctx)
		if err != nil {
			slog.Warn("里程碑对账失败", "awarded", n, "error", err)
			return
		}
		slog.Info("里程碑对账完成", "awarded", n, "cost", time.Since(start))
	})
	if err != nil {
		return nil, fmt.Errorf("解析对账 cron 失败: %w", err)
	}
	return c, nil
}
