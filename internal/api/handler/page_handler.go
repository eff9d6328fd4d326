package handler

import (
	"net/http"

	"github.com/cuongbtq/docforge/internal/api/dto"
	"github.com/gin-gonic/gin"
)

// Index handles GET /
func (h *PageHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Service":    h.service,
		"OfficeHint": h.dispatcher.OfficeHint(),
		"Engines":    h.pipeline.Registry().Report(),
	})
}

// Health handles GET /health
// Reports which office backend was selected and whether each engine can run
func (h *PageHandler) Health(c *gin.Context) {
	office := ""
	if backend := h.dispatcher.Office(); backend != nil {
		office = backend.Name()
	}

	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:        "healthy",
		Service:       h.service,
		OfficeBackend: office,
		Engines:       h.pipeline.Registry().Report(),
	})
}
