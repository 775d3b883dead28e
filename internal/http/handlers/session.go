package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/darisni/darisni-backend/internal/http/response"
	errs "github.com/darisni/darisni-backend/internal/pkg/errors"
	"github.com/darisni/darisni-backend/internal/platform/dbctx"
	"github.com/darisni/darisni-backend/internal/platform/logger"
	"github.com/darisni/darisni-backend/internal/services"
)

type SessionHandler struct {
	log         *logger.Logger
	entitlement services.EntitlementService
}

func NewSessionHandler(log *logger.Logger, entitlement services.EntitlementService) *SessionHandler {
	return &SessionHandler{
		log:         log.With("handler", "SessionHandler"),
		entitlement: entitlement,
	}
}

type sessionParams struct {
	phone         string
	subject       string
	grade         string
	sessionNumber int
}

func parseSessionParams(c *gin.Context) (sessionParams, string) {
	p := sessionParams{
		phone:   strings.TrimSpace(c.Query("phone")),
		subject: strings.ToLower(strings.TrimSpace(c.Query("subject"))),
		grade:   strings.ToLower(strings.TrimSpace(c.Query("grade"))),
	}
	if p.phone == "" {
		return p, "missing_phone"
	}
	if p.subject == "" {
		return p, "missing_subject"
	}
	if p.grade == "" {
		return p, "missing_grade"
	}
	n, err := strconv.Atoi(strings.TrimSpace(c.Query("sessionNumber")))
	if err != nil || n <= 0 {
		return p, "invalid_session_number"
	}
	p.sessionNumber = n
	return p, ""
}

func studentSnapshot(resolved *services.ResolvedStudent) gin.H {
	if resolved == nil || resolved.Record == nil {
		return nil
	}
	return gin.H{
		"name":           resolved.Record.Name,
		"balance":        resolved.Record.Balance,
		"perSessionCost": resolved.Record.PerSessionCost,
	}
}

func (h *SessionHandler) respondServiceError(c *gin.Context, code string, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		response.RespondError(c, http.StatusNotFound, "session_not_found", nil)
	case errors.Is(err, errs.ErrInvalidArgument):
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
	default:
		h.log.Error("entitlement call failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, code, err)
	}
}

// GET /api/session-access
func (h *SessionHandler) CheckAccess(c *gin.Context) {
	p, code := parseSessionParams(c)
	if code != "" {
		response.RespondError(c, http.StatusBadRequest, code, nil)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	dec, err := h.entitlement.CheckAccess(dbc, p.phone, p.subject, p.grade, p.sessionNumber)
	if err != nil {
		h.respondServiceError(c, "access_check_failed", err)
		return
	}

	response.RespondOK(c, gin.H{
		"success":   true,
		"hasAccess": dec.HasAccess,
		"reason":    dec.Reason,
		"student":   studentSnapshot(dec.Student),
	})
}

// POST /api/session-purchase
func (h *SessionHandler) Purchase(c *gin.Context) {
	p, code := parseSessionParams(c)
	if code != "" {
		response.RespondError(c, http.StatusBadRequest, code, nil)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	res, err := h.entitlement.Purchase(dbc, p.phone, p.subject, p.grade, p.sessionNumber)
	if err != nil {
		h.respondServiceError(c, "purchase_failed", err)
		return
	}

	payload := gin.H{
		"success": res.Purchased,
		"reason":  res.Reason,
	}
	if !res.Purchased {
		payload["student"] = studentSnapshot(res.Student)
	}
	response.RespondOK(c, payload)
}

// POST /api/session-attendance
func (h *SessionHandler) MarkAttendance(c *gin.Context) {
	p, code := parseSessionParams(c)
	if code != "" {
		response.RespondError(c, http.StatusBadRequest, code, nil)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	res, err := h.entitlement.MarkAttended(dbc, p.phone, p.subject, p.grade, p.sessionNumber)
	if err != nil {
		h.respondServiceError(c, "attendance_failed", err)
		return
	}

	// Already-recorded attendance is success from the player's point of
	// view: the page retries until it gets one.
	response.RespondOK(c, gin.H{
		"success": res.Recorded || res.Reason == services.AttendanceReasonAlreadyRecorded,
		"reason":  res.Reason,
	})
}
