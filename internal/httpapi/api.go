package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yuqie6/HoursTracker/internal/bootstrap"
	"github.com/yuqie6/HoursTracker/internal/dto"
	"github.com/yuqie6/HoursTracker/internal/pkg/buildinfo"
	"github.com/yuqie6/HoursTracker/internal/service"
)

type apiServer struct {
	core      *bootstrap.Core
	jwtSecret []byte
	devHeader string
}

func newAPI(core *bootstrap.Core, opts Options) *apiServer {
	a := &apiServer{core: core, devHeader: strings.TrimSpace(opts.DevUserHeader)}
	if a.devHeader == "" {
		a.devHeader = "X-User-ID"
	}
	if opts.JWTSecret != "" {
		a.jwtSecret = []byte(opts.JWTSecret)
	}
	return a
}

func (a *apiServer) registerJSONRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", a.wrapGET(a.getStatus))

	mux.HandleFunc("/api/skills", a.withUser(a.skills))
	mux.HandleFunc("/api/skills/detail", a.wrapGET(a.withUser(a.getSkillDetail)))
	mux.HandleFunc("/api/skills/update", a.wrapPOST(a.withUser(a.updateSkill)))
	mux.HandleFunc("/api/skills/delete", a.wrapPOST(a.withUser(a.deleteSkill)))
	mux.HandleFunc("/api/skills/chart", a.wrapGET(a.withUser(a.getSkillChart)))
	mux.HandleFunc("/api/skills/milestones", a.wrapGET(a.withUser(a.getSkillMilestones)))
	mux.HandleFunc("/api/skills/milestones/ack", a.wrapPOST(a.withUser(a.ackMilestones)))

	mux.HandleFunc("/api/logs/create", a.wrapPOST(a.withUser(a.createLog)))
	mux.HandleFunc("/api/logs/detail", a.wrapGET(a.withUser(a.getLog)))
	mux.HandleFunc("/api/logs/update", a.wrapPOST(a.withUser(a.updateLog)))
	mux.HandleFunc("/api/logs/delete", a.wrapPOST(a.withUser(a.deleteLog)))
}

func (a *apiServer) wrapGET(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		fn(w, r)
	}
}

func (a *apiServer) wrapPOST(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := a.core.RequireWritable(); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		fn(w, r)
	}
}

// writeServiceError 把服务层错误映射为 HTTP 状态码
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, &dto.ErrorDTO{
			Error:     verr.Error(),
			Fields:    verr.Fields,
			RequestID: w.Header().Get("X-Request-ID"),
		})
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		slog.Error("请求处理失败", "request_id", w.Header().Get("X-Request-ID"), "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// ========== handlers ==========

func (a *apiServer) getStatus(w http.ResponseWriter, r *http.Request) {
	cfg := a.core.Cfg
	out := &dto.StatusDTO{
		App: dto.AppStatusDTO{
			Name:       cfg.App.Name,
			Version:    a.version(),
			StartedAt:  a.core.StartedAt.Format(time.RFC3339),
			UptimeSec:  int64(time.Since(a.core.StartedAt).Seconds()),
			Timezone:   a.core.Calendar.Location().String(),
			ConfigPath: a.core.CfgPath,
		},
		Storage: dto.StorageStatusDTO{
			Driver: cfg.Storage.Driver,
			DBPath: cfg.Storage.DBPath,
		},
		Events: dto.EventsStatusDTO{Subscribers: a.core.Hub.Subscribers()},
	}
	if db := a.core.DB; db != nil {
		out.App.SafeMode = db.SafeMode
		out.Storage.SchemaVersion = db.SchemaVersion
		out.Storage.SafeModeReason = db.MigrationError
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *apiServer) version() string {
	return buildinfo.String()
}

func (a *apiServer) skills(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listSkills(w, r)
	case http.MethodPost:
		if err := a.core.RequireWritable(); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		a.createSkill(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *apiServer) listSkills(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := a.core.Services.Skills.List(ctx, userFrom(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	result := make([]dto.SkillDTO, 0, len(list))
	for _, s := range list {
		result = append(result, skillToDTO(s.Skill, s.Progress))
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *apiServer) createSkill(w http.ResponseWriter, r *http.Request) {
	var req service.SkillInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	skill, err := a.core.Services.Skills.Create(ctx, userFrom(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, skillToDTO(*skill, service.NewProgress(0, skill.TargetHours)))
}

func (a *apiServer) getSkillDetail(w http.ResponseWriter, r *http.Request) {
	id, err := parseInt64Param(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id 参数无效")
		return
	}
	page := 1
	if s := strings.TrimSpace(r.URL.Query().Get("page")); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			page = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	detail, err := a.core.Services.Skills.Detail(ctx, userFrom(r.Context()), id, page)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, skillDetailToDTO(detail))
}

type updateSkillRequest struct {
	ID int64 `json:"id"`
	service.SkillInput
}

func (a *apiServer) updateSkill(w http.ResponseWriter, r *http.Request) {
	var req updateSkillRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID <= 0 {
		writeError(w, http.StatusBadRequest, "id 参数无效")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	summary, err := a.core.Services.Skills.Update(ctx, userFrom(r.Context()), req.ID, req.SkillInput)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, skillToDTO(summary.Skill, summary.Progress))
}

type idRequest struct {
	ID int64 `json:"id"`
}

func (a *apiServer) deleteSkill(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := readJSON(r, &req); err != nil || req.ID <= 0 {
		writeError(w, http.StatusBadRequest, "id 参数无效")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := a.core.Services.Skills.Delete(ctx, userFrom(r.Context()), req.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *apiServer) getSkillChart(w http.ResponseWriter, r *http.Request) {
	id, err := parseInt64Param(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id 参数无效")
		return
	}
	period := r.URL.Query().Get("period")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	series, err := a.core.Services.Skills.Chart(ctx, userFrom(r.Context()), id, period)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chartToDTO(*series))
}

func (a *apiServer) getSkillMilestones(w http.ResponseWriter, r *http.Request) {
	id, err := parseInt64Param(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id 参数无效")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := a.core.Services.Skills.Milestones(ctx, userFrom(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, milestonesToDTO(list))
}

type ackMilestonesRequest struct {
	SkillID int64 `json:"skill_id"`
	Hours   []int `json:"hours"`
}

func (a *apiServer) ackMilestones(w http.ResponseWriter, r *http.Request) {
	var req ackMilestonesRequest
	if err := readJSON(r, &req); err != nil || req.SkillID <= 0 {
		writeError(w, http.StatusBadRequest, "skill_id 参数无效")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := a.core.Services.Skills.AckMilestones(ctx, userFrom(r.Context()), req.SkillID, req.Hours); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *apiServer) createLog(w http.ResponseWriter, r *http.Request) {
	var req service.PracticeLogInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := a.core.Services.Logs.Create(ctx, userFrom(r.Context()), req)
	if err != nil && (res == nil || res.Log == nil) {
		writeServiceError(w, err)
		return
	}

	out := &dto.CreateLogResponseDTO{
		Log:        logToDTO(*res.Log),
		Milestones: awardsToDTO(res.Milestones),
	}
	if err != nil {
		// 日志已保存，里程碑稍后由对账补发
		out.Warning = err.Error()
	}
	writeJSON(w, http.StatusCreated, out)
}

func (a *apiServer) getLog(w http.ResponseWriter, r *http.Request) {
	id, err := parseInt64Param(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id 参数无效")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	log, err := a.core.Services.Logs.Get(ctx, userFrom(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logToDTO(*log))
}

type updateLogRequest struct {
	ID int64 `json:"id"`
	service.PracticeLogInput
}

func (a *apiServer) updateLog(w http.ResponseWriter, r *http.Request) {
	var req updateLogRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID <= 0 {
		writeError(w, http.StatusBadRequest, "id 参数无效")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	log, err := a.core.Services.Logs.Update(ctx, userFrom(r.Context()), req.ID, req.PracticeLogInput)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logToDTO(*log))
}

func (a *apiServer) deleteLog(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := readJSON(r, &req); err != nil || req.ID <= 0 {
		writeError(w, http.StatusBadRequest, "id 参数无效")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := a.core.Services.Logs.Delete(ctx, userFrom(r.Context()), req.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
