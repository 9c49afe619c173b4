package handler

import (
	"fmt"
	"net/http"
	"strings"

	"pocket-change/internal/domain"

	"github.com/gin-gonic/gin"
)

type notifyRequest struct {
	Message string `json:"message"`
}

// Notify godoc
// @Summary      Send a notification
// @Description  Dispatches a free-form message through the configured notifier
// @Tags         notify
// @Accept       json
// @Produce      json
// @Param        request  body  notifyRequest  true  "Message to deliver"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /api/notify [post]
func (h *Handler) Notify(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.notify")
	defer span.End()

	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: invalid request body", domain.ErrValidation))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(c, fmt.Errorf("%w: message must not be empty", domain.ErrValidation))
		return
	}

	if h.notifier == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"message": "notifications are not configured",
		})
		return
	}

	if err := h.notifier.Send(ctx, req.Message); err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"success": false,
			"message": "notification delivery failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
