package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"miniapp-sync-backend/internal/common/errors"
	"miniapp-sync-backend/internal/common/middleware"
	"miniapp-sync-backend/internal/features/user/models"
	"miniapp-sync-backend/internal/features/user/repository"
	"miniapp-sync-backend/internal/features/user/sanitize"
)

type Handler struct {
	store repository.Store
}

func NewHandler(store repository.Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Register(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.GET("/:id", h.getUser)
	}
}

// getUser returns the canonical record for a user. The stored fields are
// re-sanitized on the way out so even a record written by an older
// version never leaves with missing defaults.
func (h *Handler) getUser(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		middleware.AbortWithError(c, errors.NewValidationError("id", "missing"))
		return
	}

	fields, err := h.store.Get(c.Request.Context(), repository.UserPath(id))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	if len(fields) == 0 {
		middleware.AbortWithError(c, errors.New(errors.ErrCodeNotFound, "user not found").WithUserID(id))
		return
	}

	record := sanitize.Resanitize(models.FromFields(fields))
	c.JSON(http.StatusOK, gin.H{"success": true, "user": record})
}
