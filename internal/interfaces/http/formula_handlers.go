package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/overtime-claims/internal/application/service"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
	"github.com/garyjia/overtime-claims/internal/domain/workflow"
)

// ValidateFormulaBody is the body of POST /api/formulas/validate
type ValidateFormulaBody struct {
	Formula string `json:"formula"`
}

// SetFormulaBody is the body of PUT /api/formulas/:day_type
type SetFormulaBody struct {
	Expression string   `json:"expression" binding:"required"`
	Multiplier *float64 `json:"multiplier"`
}

// EvaluateFormula handles POST /api/formulas/evaluate.
// Evaluation failures are part of the result, not an HTTP error.
func (h *Handlers) EvaluateFormula(c *gin.Context) {
	var req service.EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.DayType == "" {
		req.DayType = entity.DayTypeWeekday
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.payService.Evaluate(req)})
}

// ValidateFormula handles POST /api/formulas/validate
func (h *Handlers) ValidateFormula(c *gin.Context) {
	var req ValidateFormulaBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.payService.Validate(req.Formula)})
}

// ListFormulas handles GET /api/formulas
func (h *Handlers) ListFormulas(c *gin.Context) {
	formulas, err := h.payService.ListFormulas(c.Request.Context())
	if err != nil {
		h.fail(c, "ListFormulas", err)
		return
	}
	if formulas == nil {
		formulas = []*entity.PayFormula{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: formulas})
}

// SetFormula handles PUT /api/formulas/:day_type. Only HR and admins author formulas.
func (h *Handlers) SetFormula(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if actor.Role != workflow.RoleHR && actor.Role != workflow.RoleAdmin {
		c.JSON(http.StatusForbidden, Response{Success: false, Code: CodeForbidden, Error: "only hr or admin may change pay formulas"})
		return
	}

	var req SetFormulaBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	f := &entity.PayFormula{
		DayType:    entity.DayType(c.Param("day_type")),
		Expression: req.Expression,
		Multiplier: 1,
		UpdatedBy:  actor.ID,
	}
	if req.Multiplier != nil {
		f.Multiplier = *req.Multiplier
	}

	if err := h.payService.SetFormula(c.Request.Context(), f); err != nil {
		h.fail(c, "SetFormula", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: f})
}
