package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"k8s.io/klog/v2"

	"github.com/piwi3910/TreePack/internal/model"
	"github.com/piwi3910/TreePack/internal/score"
	"github.com/piwi3910/TreePack/internal/submission"
)

// Error codes returned in the "code" field.
const (
	CodeParticipantVisible = "participant_visible"
	CodeMissingGroup       = "missing_group"
	CodeBadRequest         = "bad_request"
)

// HealthHandler handles health check requests.
type HealthHandler struct{}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Check returns the health status of the server.
func (h *HealthHandler) Check(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}

// ScoreHandler scores uploaded submissions.
type ScoreHandler struct {
	maxN int
}

// NewScoreHandler creates a ScoreHandler. With complete=true in the query,
// every group 1..maxN must be present.
func NewScoreHandler(maxN int) *ScoreHandler {
	return &ScoreHandler{maxN: maxN}
}

// Score decodes a CSV request body and returns the total and per-group
// scores. Query parameters: lenient (accept values without the "s"
// prefix) and complete (require every group 1..maxN).
func (h *ScoreHandler) Score(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return ErrorWithCode(c, http.StatusBadRequest, CodeBadRequest, "failed to read request body")
	}
	lenient, _ := strconv.ParseBool(c.QueryParam("lenient"))
	complete, _ := strconv.ParseBool(c.QueryParam("complete"))

	sub, err := submission.Decode(bytes.NewReader(body), submission.DecodeOptions{Lenient: lenient})
	if err != nil {
		return h.fail(c, err)
	}

	var report score.Report
	if complete {
		report, err = score.EvaluateComplete(sub, h.maxN)
	} else {
		report, err = score.Evaluate(sub)
	}
	if err != nil {
		return h.fail(c, err)
	}

	groups := make(map[string]float64, len(report.Groups))
	for n, s := range report.Groups {
		groups[strconv.Itoa(n)] = s
	}
	klog.V(1).Infof("scored submission with %d groups: %.12f", len(groups), report.Total)
	return Success(c, map[string]interface{}{
		"total":  report.Total,
		"groups": groups,
	})
}

func (h *ScoreHandler) fail(c echo.Context, err error) error {
	switch {
	case model.IsParticipantVisible(err):
		return ErrorWithCode(c, http.StatusUnprocessableEntity, CodeParticipantVisible, err.Error())
	case errors.Is(err, model.ErrMissingGroup):
		return ErrorWithCode(c, http.StatusUnprocessableEntity, CodeMissingGroup, err.Error())
	default:
		return ErrorWithCode(c, http.StatusBadRequest, CodeBadRequest, err.Error())
	}
}
