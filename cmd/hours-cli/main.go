package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuqie6/HoursTracker/internal/bootstrap"
	"github.com/yuqie6/HoursTracker/internal/httpapi"
	"github.com/yuqie6/HoursTracker/internal/pkg/buildinfo"
	"github.com/yuqie6/HoursTracker/internal/service"
)

var (
	cfgFile string
	userID  string
	core    *bootstrap.Core
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "hours",
		Short:   "HoursTracker - 练习时长记录与里程碑",
		Long:    `HoursTracker 记录每项技能每天的练习分钟数，按周期绘制趋势，并在累计时长跨过 100、250、500……小时时颁发里程碑。`,
		Version: buildinfo.String(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			core, err = bootstrap.NewCore(cfgFile)
			if err != nil {
				return fmt.Errorf("初始化失败: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if core != nil {
				_ = core.Close()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", envOr("HOURS_USER", "local"), "用户 ID")

	// 添加子命令
	rootCmd.AddCommand(skillsCmd())
	rootCmd.AddCommand(skillCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(chartCmd())
	rootCmd.AddCommand(milestonesCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// skillsCmd 列出技能
func skillsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "skills",
		Short: "列出技能与进度",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := core.Services.Skills.List(cmd.Context(), userID)
			if err != nil {
				return explain(err)
			}
			if len(list) == 0 {
				fmt.Println("📚 还没有技能，使用 'hours skill add --name <名称>' 创建")
				return nil
			}

			fmt.Println("🎯 技能进度")
			fmt.Println("═══════════════════════════════════════")
			for _, s := range list {
				fmt.Printf("  #%-4d %-20s %s %6.2f / %d 小时 (%.2f%%)\n",
					s.Skill.ID,
					s.Skill.Name,
					progressBar(s.Progress.ProgressPercentage),
					s.Progress.TotalHours,
					s.Skill.TargetHours,
					s.Progress.ProgressPercentage,
				)
			}
			fmt.Println("═══════════════════════════════════════")
			return nil
		},
	}
}

// skillCmd 技能管理
func skillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skill",
		Short: "管理技能",
	}

	var in service.SkillInput
	add := &cobra.Command{
		Use:   "add",
		Short: "创建技能",
		RunE: func(cmd *cobra.Command, args []string) error {
			skill, err := core.Services.Skills.Create(cmd.Context(), userID, in)
			if err != nil {
				return explain(err)
			}
			fmt.Printf("✅ 已创建技能 #%d %s（目标 %d 小时）\n", skill.ID, skill.Name, skill.TargetHours)
			return nil
		},
	}
	add.Flags().StringVar(&in.Name, "name", "", "技能名称")
	add.Flags().StringVar(&in.Description, "desc", "", "描述")
	add.Flags().StringVar(&in.Color, "color", "", "颜色，例如 #007bff")
	add.Flags().IntVar(&in.TargetHours, "target", 0, "目标小时数（默认 1000）")
	_ = add.MarkFlagRequired("name")

	var deleteID int64
	del := &cobra.Command{
		Use:   "delete",
		Short: "删除技能及其全部日志与里程碑",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := core.Services.Skills.Delete(cmd.Context(), userID, deleteID); err != nil {
				return explain(err)
			}
			fmt.Printf("🗑️  已删除技能 #%d\n", deleteID)
			return nil
		},
	}
	del.Flags().Int64Var(&deleteID, "id", 0, "技能 ID")
	_ = del.MarkFlagRequired("id")

	cmd.AddCommand(add, del)
	return cmd
}

// logCmd 练习日志
func logCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "记录练习",
	}

	var in service.PracticeLogInput
	add := &cobra.Command{
		Use:   "add",
		Short: "记录一天的练习",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.PracticeDate == "" {
				in.PracticeDate = core.Calendar.FormatDate(core.Calendar.Today())
			}
			res, err := core.Services.Logs.Create(cmd.Context(), userID, in)
			if res != nil && res.Log != nil {
				fmt.Printf("✅ 已记录 %s %d 分钟\n", res.Log.PracticeDate, res.Log.Minutes)
				for _, m := range res.Milestones {
					fmt.Printf("🎉 %s\n", m.Message)
				}
			}
			if err != nil {
				return explain(err)
			}
			return nil
		},
	}
	add.Flags().Int64Var(&in.SkillID, "skill", 0, "技能 ID")
	add.Flags().StringVar(&in.PracticeDate, "date", "", "日期 (YYYY-MM-DD，默认今天)")
	add.Flags().IntVar(&in.Minutes, "minutes", 0, "练习分钟数 (1-1440)")
	add.Flags().StringVar(&in.Notes, "notes", "", "备注")
	_ = add.MarkFlagRequired("skill")
	_ = add.MarkFlagRequired("minutes")

	cmd.AddCommand(add)
	return cmd
}

// chartCmd 在终端绘制趋势
func chartCmd() *cobra.Command {
	var skillID int64
	var period string

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "查看技能练习趋势",
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := core.Services.Skills.Chart(cmd.Context(), userID, skillID, period)
			if err != nil {
				return explain(err)
			}
			maxV := 0
			for _, v := range series.Values {
				if v > maxV {
					maxV = v
				}
			}
			fmt.Printf("📈 技能 #%d 趋势（%s）\n", skillID, series.Period)
			for i, label := range series.Labels {
				v := series.Values[i]
				width := 0
				if maxV > 0 {
					width = v * 40 / maxV
				}
				fmt.Printf("  %-8s %s %d\n", label, strings.Repeat("█", width), v)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&skillID, "skill", 0, "技能 ID")
	cmd.Flags().StringVar(&period, "period", string(service.DefaultPeriod), "7days | 30days | 90days | 6months | 12months | year")
	_ = cmd.MarkFlagRequired("skill")
	return cmd
}

// milestonesCmd 查看已达成里程碑
func milestonesCmd() *cobra.Command {
	var skillID int64

	cmd := &cobra.Command{
		Use:   "milestones",
		Short: "查看已达成的里程碑",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := core.Services.Skills.Milestones(cmd.Context(), userID, skillID)
			if err != nil {
				return explain(err)
			}
			if len(list) == 0 {
				fmt.Println("🏁 还没有达成里程碑")
				return nil
			}
			sort.Slice(list, func(i, j int) bool { return list[i].Hours < list[j].Hours })
			for _, m := range list {
				fmt.Printf("  🏆 %5d 小时  %s\n", m.Hours, m.AchievedAt.In(core.Calendar.Location()).Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&skillID, "skill", 0, "技能 ID")
	_ = cmd.MarkFlagRequired("skill")
	return cmd
}

// reconcileCmd 补发遗漏的里程碑
func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "重新评估全部技能的里程碑",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			n, err := core.Services.Milestones.ReconcileAll(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("✅ 对账完成，新颁发 %d 个里程碑\n", n)
			return nil
		},
	}
}

// tokenCmd 为 HTTP API 签发访问 token
func tokenCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "签发 HTTP API 访问 token",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := core.Cfg.Auth.JWTSecret
			if secret == "" {
				return errors.New("auth.jwt_secret 未配置（可设置环境变量 HOURS_AUTH_JWT_SECRET）")
			}
			token, err := httpapi.IssueToken([]byte(secret), userID, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "有效期，0 表示不过期")
	return cmd
}

func explain(err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		keys := make([]string, 0, len(verr.Fields))
		for k := range verr.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("❌ %s: %s\n", k, verr.Fields[k])
		}
	case errors.Is(err, service.ErrNotFound):
		fmt.Println("❌ 技能或日志不存在")
	case errors.Is(err, service.ErrConflict):
		fmt.Println("⚠️  数据被并发修改，请重试")
	}
	return err
}

func progressBar(pct float64) string {
	const width = 20
	filled := int(pct / 100 * width)
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
