package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/overtime-claims/internal/domain/entity"
	"github.com/garyjia/overtime-claims/internal/domain/formula"
	"github.com/garyjia/overtime-claims/internal/domain/policy"
	"github.com/garyjia/overtime-claims/internal/domain/workflow"
)

// Error codes returned in Response.Code
const (
	CodeValidation     = "validation_error"
	CodeNotEligible    = "not_eligible"
	CodeMissingRemarks = "missing_remarks"
	CodeInvalidState   = "invalid_transition"
	CodeThreshold      = "threshold_exceeded"
	CodeFormula        = "formula_error"
	CodeNotFound       = "not_found"
	CodeForbidden      = "forbidden"
	CodeInternal       = "internal_error"
)

// classify maps domain errors onto an HTTP status and a stable code
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, workflow.ErrMissingRemarks):
		return http.StatusBadRequest, CodeMissingRemarks
	case errors.Is(err, policy.ErrNotEligible):
		return http.StatusBadRequest, CodeNotEligible
	case errors.Is(err, entity.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, workflow.ErrInvalidTransition):
		return http.StatusConflict, CodeInvalidState
	case errors.Is(err, policy.ErrThresholdExceeded):
		return http.StatusUnprocessableEntity, CodeThreshold
	case errors.Is(err, formula.ErrFormulaSyntax), errors.Is(err, formula.ErrFormulaEvaluation):
		return http.StatusUnprocessableEntity, CodeFormula
	}
	return http.StatusInternalServerError, CodeInternal
}

// fail writes the error response; internal errors are logged and masked
func (h *Handlers) fail(c *gin.Context, op string, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error(op+" failed", "error", err)
		msg = "internal server error"
	}

	resp := Response{Success: false, Code: code, Error: msg}

	var te *policy.ThresholdExceededError
	if errors.As(err, &te) {
		resp.Data = gin.H{
			"threshold_id":   te.ThresholdID,
			"threshold_name": te.ThresholdName,
			"type":           te.Type,
			"limit":          te.Limit,
			"actual":         te.Actual,
		}
	}

	c.JSON(status, resp)
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Code: CodeValidation, Error: msg})
}
