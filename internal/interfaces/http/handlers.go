package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/overtime-claims/internal/application/port"
	"github.com/garyjia/overtime-claims/internal/application/service"
	appwf "github.com/garyjia/overtime-claims/internal/application/workflow"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
	"github.com/garyjia/overtime-claims/internal/domain/workflow"
)

// Actor headers. Identity is supplied by the caller on every request.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorName = "X-Actor-Name"
	HeaderActorRole = "X-Actor-Role"
)

// maxPageSize is the default and upper bound of the list limit
const maxPageSize = 100

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine     appwf.Engine
	payService service.PayService
	logger     Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(engine appwf.Engine, payService service.PayService, logger Logger) *Handlers {
	return &Handlers{
		engine:     engine,
		payService: payService,
		logger:     logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SubmitBody is the body of POST /api/requests
type SubmitBody struct {
	EmployeeID   string   `json:"employee_id"`
	SupervisorID *string  `json:"supervisor_id"`
	OTDate       string   `json:"ot_date" binding:"required"`
	StartTime    string   `json:"start_time" binding:"required"`
	EndTime      string   `json:"end_time" binding:"required"`
	DayType      string   `json:"day_type"`
	Reason       string   `json:"reason" binding:"required"`
	Attachments  []string `json:"attachments"`
}

// ActionBody is the body of POST /api/requests/actions
type ActionBody struct {
	RequestIDs []int64 `json:"request_ids" binding:"required,min=1"`
	Decision   string  `json:"decision" binding:"required,oneof=approve reject"`
	Remarks    string  `json:"remarks"`
}

// ResubmitBody is the body of POST /api/requests/:id/resubmit.
// Omitted fields are copied from the rejected request.
type ResubmitBody struct {
	OTDate      *string  `json:"ot_date"`
	StartTime   *string  `json:"start_time"`
	EndTime     *string  `json:"end_time"`
	DayType     *string  `json:"day_type"`
	Reason      *string  `json:"reason"`
	Attachments []string `json:"attachments"`
}

// ListRequestsQuery holds the filters of GET /api/requests
type ListRequestsQuery struct {
	EmployeeID string `form:"employee_id"`
	Status     string `form:"status"`
	From       string `form:"from"`
	To         string `form:"to"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

// SubmitResponse carries the stored request and a formula failure, if any
type SubmitResponse struct {
	Request      *entity.OvertimeRequest `json:"request"`
	FormulaError string                  `json:"formula_error,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// SubmitRequest handles POST /api/requests
func (h *Handlers) SubmitRequest(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req SubmitBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	date, err := entity.ParseDate(req.OTDate)
	if err != nil {
		h.fail(c, "Submit", err)
		return
	}

	employeeID := strings.TrimSpace(req.EmployeeID)
	if employeeID == "" {
		employeeID = actor.ID
	}

	res, err := h.engine.Submit(c.Request.Context(), appwf.SubmitInput{
		EmployeeID:   employeeID,
		SupervisorID: req.SupervisorID,
		OTDate:       date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		DayType:      entity.DayType(req.DayType),
		Reason:       req.Reason,
		Attachments:  req.Attachments,
		Actor:        actor,
	})
	if err != nil {
		h.fail(c, "Submit", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: toSubmitResponse(res)})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	req, err := h.engine.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "GetRequest", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// ListRequests handles GET /api/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	filter, ok := h.filter(c)
	if !ok {
		return
	}

	requests, err := h.engine.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "ListRequests", err)
		return
	}
	if requests == nil {
		requests = []*entity.OvertimeRequest{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: requests})
}

// GroupedRequests handles GET /api/requests/grouped
func (h *Handlers) GroupedRequests(c *gin.Context) {
	filter, ok := h.filter(c)
	if !ok {
		return
	}

	groups, err := h.engine.Grouped(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "GroupedRequests", err)
		return
	}
	if groups == nil {
		groups = []*entity.RequestGroup{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: groups})
}

// ActOnRequests handles POST /api/requests/actions
func (h *Handlers) ActOnRequests(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req ActionBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	updated, err := h.engine.Act(c.Request.Context(), appwf.ActInput{
		RequestIDs: req.RequestIDs,
		Actor:      actor,
		Decision:   workflow.Decision(req.Decision),
		Remarks:    req.Remarks,
	})
	if err != nil {
		h.fail(c, "Act", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: updated})
}

// ResubmitRequest handles POST /api/requests/:id/resubmit
func (h *Handlers) ResubmitRequest(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	var req ResubmitBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	changes := service.RequestChanges{
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Reason:      req.Reason,
		Attachments: req.Attachments,
	}
	if req.OTDate != nil {
		date, err := entity.ParseDate(*req.OTDate)
		if err != nil {
			h.fail(c, "Resubmit", err)
			return
		}
		changes.OTDate = &date
	}
	if req.DayType != nil {
		dt := entity.DayType(*req.DayType)
		changes.DayType = &dt
	}

	res, err := h.engine.Resubmit(c.Request.Context(), appwf.ResubmitInput{
		OriginalID: id,
		Actor:      actor,
		Changes:    changes,
	})
	if err != nil {
		h.fail(c, "Resubmit", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: toSubmitResponse(res)})
}

// RecomputePay handles POST /api/requests/:id/recompute
func (h *Handlers) RecomputePay(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	res, err := h.engine.RecomputePay(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "RecomputePay", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toSubmitResponse(res)})
}

// RequestHistory handles GET /api/requests/:id/history
func (h *Handlers) RequestHistory(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	records, err := h.engine.History(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "History", err)
		return
	}
	if records == nil {
		records = []*entity.TransitionRecord{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

// RequestResubmissions handles GET /api/requests/:id/resubmissions
func (h *Handlers) RequestResubmissions(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	chain, err := h.engine.Resubmissions(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Resubmissions", err)
		return
	}
	if chain == nil {
		chain = []*entity.ResubmissionHistoryEntry{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: chain})
}

// actor reads the caller identity headers
func (h *Handlers) actor(c *gin.Context) (appwf.Actor, bool) {
	actor := appwf.Actor{
		ID:   strings.TrimSpace(c.GetHeader(HeaderActorID)),
		Name: strings.TrimSpace(c.GetHeader(HeaderActorName)),
		Role: workflow.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderActorRole)))),
	}
	if actor.ID == "" || !actor.Role.IsValid() {
		h.badRequest(c, HeaderActorID+" and a valid "+HeaderActorRole+" header are required")
		return appwf.Actor{}, false
	}
	if actor.Name == "" {
		actor.Name = actor.ID
	}
	return actor, true
}

func (h *Handlers) requestID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, "invalid request id")
		return 0, false
	}
	return id, true
}

func (h *Handlers) filter(c *gin.Context) (port.RequestFilter, bool) {
	var q ListRequestsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, "invalid query parameters")
		return port.RequestFilter{}, false
	}

	if q.Limit <= 0 || q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	f := port.RequestFilter{
		EmployeeID: q.EmployeeID,
		Status:     workflow.State(q.Status),
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
	for _, bound := range []struct {
		raw string
		dst **time.Time
	}{{q.From, &f.From}, {q.To, &f.To}} {
		if bound.raw == "" {
			continue
		}
		d, err := entity.ParseDate(bound.raw)
		if err != nil {
			h.fail(c, "ListRequests", err)
			return port.RequestFilter{}, false
		}
		*bound.dst = &d
	}
	return f, true
}

func toSubmitResponse(res *appwf.SubmitResult) SubmitResponse {
	out := SubmitResponse{Request: res.Request}
	if res.FormulaError != nil {
		out.FormulaError = res.FormulaError.Error()
	}
	return out
}
