package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"miniapp-sync-backend/internal/common/errors"
	"miniapp-sync-backend/internal/common/middleware"
	"miniapp-sync-backend/internal/features/referral/service"
)

type Handler struct {
	service *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

func (h *Handler) Register(r *gin.RouterGroup) {
	referrals := r.Group("/referrals")
	{
		referrals.POST("", h.create)
		referrals.POST("/confirm", h.confirm)
		referrals.GET("/:id", h.get)
	}
}

type createRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	ReferrerID string `json:"referrer_id"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, errors.NewValidationError("body", err.Error()))
		return
	}

	record, err := h.service.CreatePending(c.Request.Context(), req.UserID, req.ReferrerID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "referral": record})
}

type confirmRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// confirm is the referral confirmation endpoint: POST {userId} in,
// {success, error?} out. Confirming an already-confirmed or unknown
// referral succeeds without effect.
func (h *Handler) confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "userId required"})
		return
	}

	credited, err := h.service.Confirm(c.Request.Context(), req.UserID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "credited": credited})
}

func (h *Handler) get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "referral": record})
}
