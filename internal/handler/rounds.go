package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rainlanguage/rain.solver-sub002/internal/service"
)

// RoundSource serves recent round reports. Implemented by
// service.RoundService.
type RoundSource interface {
	Recent(n int) []service.RoundReport
}

type RoundsHandler struct {
	Rounds RoundSource
}

func (h *RoundsHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/rounds", h.list)
}

func (h *RoundsHandler) list(c *gin.Context) {
	if h.Rounds == nil {
		Error(c, http.StatusServiceUnavailable, "rounds unavailable", nil)
		return
	}
	limit := 16
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			Error(c, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = v
	}
	reports := h.Rounds.Recent(limit)
	Ok(c, reports, map[string]any{"count": len(reports)})
}
