package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	identitymodels "miniapp-sync-backend/internal/features/identity/models"
	"miniapp-sync-backend/internal/features/sync/service"
)

// Headers the Mini App client sends on open: the host SDK's init data
// when running inside the platform, a browser-persisted device id
// otherwise.
const (
	headerInitData = "init_data"
	headerDeviceID = "X-Device-ID"
)

type Handler struct {
	orchestrator *service.Orchestrator
}

func NewHandler(orchestrator *service.Orchestrator) *Handler {
	return &Handler{orchestrator: orchestrator}
}

func (h *Handler) Register(r *gin.RouterGroup) {
	sync := r.Group("/sync")
	{
		sync.POST("/open", h.open)
		sync.POST("/invalidate/:id", h.invalidate)
	}
}

// open runs the app-open orchestration. It always answers 200: failures
// inside the pipeline are contained, the client only learns whether an
// identity was resolved.
func (h *Handler) open(c *gin.Context) {
	source := identitymodels.Source{
		InitData: c.GetHeader(headerInitData),
		DeviceID: c.GetHeader(headerDeviceID),
	}

	result := h.orchestrator.Run(c.Request.Context(), source)

	resp := gin.H{
		"state":     result.State,
		"cache_hit": result.CacheHit,
		"anonymous": result.Anonymous,
	}
	if result.Identity != nil {
		resp["user_id"] = result.Identity.ID
		resp["guest"] = result.Identity.Guest
	}
	c.JSON(http.StatusOK, resp)
}

// invalidate drops the cached identity; the next open re-runs the full
// pipeline. Intended for explicit refresh flows.
func (h *Handler) invalidate(c *gin.Context) {
	h.orchestrator.Invalidate(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"success": true})
}
