package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tracklink/internal/models"
)

// TrackResolver is the pipeline as the HTTP layer sees it
type TrackResolver interface {
	Resolve(ctx context.Context, req *models.ResolutionRequest) *models.ResolutionResult
	Health(ctx context.Context) map[string]error
}

// ResolutionHandler handles track resolution requests
type ResolutionHandler struct {
	resolver TrackResolver
}

// NewResolutionHandler creates a new resolution handler
func NewResolutionHandler(resolver TrackResolver) *ResolutionHandler {
	return &ResolutionHandler{resolver: resolver}
}

// ResolveTrack handles POST /api/v1/resolutions. The response is always a
// well-formed result object; "needs manual review" is a success=false body,
// not an error status.
func (h *ResolutionHandler) ResolveTrack(c *gin.Context) {
	var req models.ResolutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result := h.resolver.Resolve(c.Request.Context(), &req)

	slog.Info("Track resolution completed",
		"path", result.Path,
		"success", result.Success,
		"confidence", result.Confidence,
		"canonicalPlatform", result.CanonicalPlatform)

	c.JSON(http.StatusOK, result)
}

// Health handles GET /health
func (h *ResolutionHandler) Health(c *gin.Context) {
	providers := h.resolver.Health(c.Request.Context())

	status := http.StatusOK
	body := gin.H{"status": "ok"}

	details := make(map[string]string, len(providers))
	for name, err := range providers {
		if err != nil {
			details[name] = err.Error()
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		} else {
			details[name] = "ok"
		}
	}
	body["providers"] = details

	c.JSON(status, body)
}
