package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ChainPinger reports whether the RPC endpoint answers. Implemented by
// chain.Executor through its snapshot path.
type ChainPinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	Chain ChainPinger
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) ready(c *gin.Context) {
	if h.Chain == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "rpc_missing"})
		return
	}
	if err := h.Chain.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "rpc_unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
