package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"worklog-summary/internal/analyzer"
	"worklog-summary/internal/export"
	"worklog-summary/internal/period"
	"worklog-summary/internal/storage"
	"worklog-summary/internal/task"
)

type recordRequest struct {
	Tenant       string   `json:"tenant" binding:"required"`
	Date         string   `json:"date" binding:"required"`
	Status       string   `json:"status"`
	NoWorkReason string   `json:"noWorkReason"`
	Project      string   `json:"project"`
	Task         string   `json:"task"`
	WorkDone     []string `json:"workDone"`
	FilesTouched []string `json:"filesTouched"`
	TechStack    []string `json:"techStack"`
	Blockers     string   `json:"blockers"`
	Learnings    []string `json:"learnings"`
	Impact       []string `json:"impact"`
	NextPlan     string   `json:"nextPlan"`
	Hours        float64  `json:"hours" binding:"min=0,max=24"`
}

type generateRequest struct {
	Tenant string `json:"tenant"`
	Type   string `json:"type"`
	Index  int    `json:"index"`
	Year   int    `json:"year"`
	Date   string `json:"date"`
}

type rangeRequest struct {
	Tenant    string `json:"tenant" binding:"required"`
	StartDate string `json:"startDate" binding:"required"`
	EndDate   string `json:"endDate" binding:"required"`
	Save      *bool  `json:"save"`
}

type updateSummaryRequest struct {
	Content string `json:"content" binding:"required"`
}

type tenantRequest struct {
	Tenant string `json:"tenant" binding:"required"`
}

// createRecord 保存一条工作记录并触发周期检查
// POST /api/logs
func (s *Server) createRecord(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failWithDetails(c, http.StatusBadRequest, codeBadRequest, "invalid record", err.Error())
		return
	}
	date, err := period.ParseDay(req.Date)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	status := storage.StatusAvailable
	if req.Status != "" {
		status = storage.RecordStatus(req.Status)
	}
	if !status.Valid() {
		badRequest(c, "unknown status "+strconv.Quote(req.Status))
		return
	}

	record := &storage.Record{
		Tenant:       req.Tenant,
		Date:         date,
		Status:       status,
		NoWorkReason: req.NoWorkReason,
		Project:      req.Project,
		Task:         req.Task,
		WorkDone:     req.WorkDone,
		FilesTouched: req.FilesTouched,
		TechStack:    req.TechStack,
		Blockers:     req.Blockers,
		Learnings:    req.Learnings,
		Impact:       req.Impact,
		NextPlan:     req.NextPlan,
		Hours:        req.Hours,
	}
	if err := s.store.SaveRecord(c.Request.Context(), record); err != nil {
		s.handleError(c, err)
		return
	}

	s.generator.OnRecordWritten(record.Tenant, record.Date)
	created(c, record)
}

// generateSummary 手动生成周报/月报
// POST /api/summaries/generate
func (s *Server) generateSummary(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failWithDetails(c, http.StatusBadRequest, codeBadRequest, "invalid request", err.Error())
		return
	}

	manual := task.ManualRequest{
		Tenant: req.Tenant,
		Index:  req.Index,
		Year:   req.Year,
	}
	if req.Type != "" {
		t, err := period.ParseType(req.Type)
		if err != nil {
			s.handleError(c, errors.Join(task.ErrInvalidPeriodRequest, err))
			return
		}
		manual.Type = t
	}
	if req.Date != "" {
		d, err := period.ParseDay(req.Date)
		if err != nil {
			s.handleError(c, errors.Join(task.ErrInvalidPeriodRequest, err))
			return
		}
		manual.Date = d
	}

	result, err := s.generator.GenerateManual(c.Request.Context(), manual)
	if err != nil {
		s.handleError(c, err)
		return
	}
	s.writeResult(c, result)
}

// listSummaries 列出租户的周报或月报
// GET /api/summaries/:type?tenant=xxx
func (s *Server) listSummaries(c *gin.Context) {
	t, err := period.ParseType(c.Param("type"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	tenant := c.Query("tenant")
	if tenant == "" {
		badRequest(c, "tenant is required")
		return
	}

	summaries, err := s.store.ListSummaries(c.Request.Context(), tenant, t)
	if err != nil {
		s.handleError(c, err)
		return
	}
	if summaries == nil {
		summaries = []*storage.Summary{}
	}
	ok(c, summaries)
}

// updateSummary 修改已生成总结的内容
// PUT /api/summaries/:id
func (s *Server) updateSummary(c *gin.Context) {
	var req updateSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failWithDetails(c, http.StatusBadRequest, codeBadRequest, "invalid request", err.Error())
		return
	}

	summary, err := s.store.UpdateSummaryContent(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		s.handleError(c, err)
		return
	}
	ok(c, summary)
}

// exportSummaries 导出总结为 xlsx
// GET /api/export/summaries?tenant=xxx&type=weekly
func (s *Server) exportSummaries(c *gin.Context) {
	tenant := c.Query("tenant")
	if tenant == "" {
		badRequest(c, "tenant is required")
		return
	}
	var t period.Type
	if raw := c.Query("type"); raw != "" {
		parsed, err := period.ParseType(raw)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		t = parsed
	}

	summaries, err := s.store.ListSummaries(c.Request.Context(), tenant, t)
	if err != nil {
		s.handleError(c, err)
		return
	}
	buf, filename, err := export.Summaries(tenant, summaries)
	if err != nil {
		s.handleError(c, err)
		return
	}

	const contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// generateReport 生成任意日期范围的报告，除非 save=false 否则保存
// POST /api/ai/generate
func (s *Server) generateReport(c *gin.Context) {
	var req rangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failWithDetails(c, http.StatusBadRequest, codeBadRequest, "invalid request", err.Error())
		return
	}
	from, err := period.ParseDay(req.StartDate)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	to, err := period.ParseDay(req.EndDate)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	save := req.Save == nil || *req.Save
	result, err := s.generator.GenerateRange(c.Request.Context(), req.Tenant, from, to, save)
	if err != nil {
		s.handleError(c, err)
		return
	}
	s.writeResult(c, result)
}

// latestSummary 返回租户最近生成的一份总结
// GET /api/ai/latest?tenant=xxx
func (s *Server) latestSummary(c *gin.Context) {
	tenant := c.Query("tenant")
	if tenant == "" {
		badRequest(c, "tenant is required")
		return
	}
	summary, err := s.store.FindLatestSummary(c.Request.Context(), tenant)
	if err != nil {
		s.handleError(c, err)
		return
	}
	ok(c, summary)
}

// insight POST /api/ai/insight
func (s *Server) insight(c *gin.Context) {
	var req tenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failWithDetails(c, http.StatusBadRequest, codeBadRequest, "invalid request", err.Error())
		return
	}
	fb, err := s.advisor.Insight(c.Request.Context(), req.Tenant)
	if err != nil {
		s.handleError(c, err)
		return
	}
	ok(c, fb)
}

// critique GET /api/feedback/critique?tenant=xxx&refresh=true
func (s *Server) critique(c *gin.Context) {
	tenant := c.Query("tenant")
	if tenant == "" {
		badRequest(c, "tenant is required")
		return
	}
	refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))

	fb, err := s.advisor.Critique(c.Request.Context(), tenant, refresh)
	if err != nil {
		s.handleError(c, err)
		return
	}
	ok(c, fb)
}

type generateResponse struct {
	Status  task.Status      `json:"status"`
	Summary *storage.Summary `json:"summary"`
}

func (s *Server) writeResult(c *gin.Context, result *task.GenerateResult) {
	switch result.Status {
	case task.StatusNoData:
		fail(c, http.StatusNotFound, codeNoData, "no records found for this period")
	case task.StatusCreated:
		created(c, generateResponse{Status: result.Status, Summary: result.Summary})
	default:
		ok(c, generateResponse{Status: result.Status, Summary: result.Summary})
	}
}

func (s *Server) handleError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, task.ErrInvalidPeriodRequest), errors.Is(err, period.ErrInvalidPeriod):
		failWithDetails(c, http.StatusBadRequest, codeBadRequest, "invalid period request", err.Error())
	case errors.Is(err, storage.ErrNotFound):
		fail(c, http.StatusNotFound, codeNotFound, "not found")
	case errors.Is(err, export.ErrNothingToExport):
		fail(c, http.StatusNotFound, codeNoData, "no summaries to export")
	case errors.Is(err, analyzer.ErrProviderUnavailable):
		failWithDetails(c, http.StatusBadGateway, codeProviderFailure, "AI provider unavailable", err.Error())
	case errors.Is(err, context.Canceled):
		fail(c, 499, codeInternal, "request cancelled")
	default:
		fail(c, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}
