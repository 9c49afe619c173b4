package handler

import (
	"errors"
	"net/http"

	"pocket-change/internal/domain"
	"pocket-change/internal/notify"
	"pocket-change/internal/records"
	"pocket-change/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	tracer       trace.Tracer
	ratesService *service.RatesService
	history      *records.Log
	favorites    *records.Log
	audit        *records.Log
	notifier     notify.Notifier
}

func New(
	tracer trace.Tracer,
	ratesService *service.RatesService,
	history, favorites, audit *records.Log,
	notifier notify.Notifier,
) *Handler {
	return &Handler{
		tracer:       tracer,
		ratesService: ratesService,
		history:      history,
		favorites:    favorites,
		audit:        audit,
		notifier:     notifier,
	}
}

// RegisterRoutes mounts everything under /api behind the API key
// middleware; /health stays open for probes.
func (h *Handler) RegisterRoutes(r *gin.Engine, apiKey string) {
	r.GET("/health", h.Health)

	api := r.Group("/api", APIKeyAuth(apiKey))
	api.GET("/currencies", h.GetCurrencies)
	api.GET("/rates", h.GetRates)
	api.GET("/rates/history", h.GetRateHistory)
	api.GET("/rates/:from/:to", h.GetRate)
	api.GET("/convert", h.Convert)
	api.POST("/notify", h.Notify)

	h.registerLogRoutes(api, "/history", h.history)
	h.registerLogRoutes(api, "/favorites", h.favorites)
	h.registerLogRoutes(api, "/audit", h.audit)
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup, path string, l *records.Log) {
	api.GET(path, h.listLog(l))
	api.POST(path, h.addLogEntry(l))
	api.DELETE(path, h.clearLog(l))
	api.DELETE(path+"/:id", h.removeLogEntry(l))
}

// respondError maps domain errors onto HTTP statuses and writes the
// error envelope every non-2xx response uses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnknownCurrency):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRateUnavailable):
		status = http.StatusNotFound
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": err.Error()})
}
