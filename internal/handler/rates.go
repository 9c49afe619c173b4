package handler

import (
	"net/http"
	"strconv"

	"pocket-change/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetCurrencies godoc
// @Summary      List supported currencies
// @Description  Returns every crypto asset and fiat currency the service can quote
// @Tags         rates
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/currencies [get]
func (h *Handler) GetCurrencies(c *gin.Context) {
	codes := domain.SupportedCodes()
	currencies := make([]domain.Currency, 0, len(codes))
	for _, code := range codes {
		currencies = append(currencies, domain.Currencies[code])
	}
	c.JSON(http.StatusOK, gin.H{"currencies": currencies})
}

// GetRates godoc
// @Summary      Get the current rate snapshot
// @Description  Returns the latest rate table; stale snapshots are served while a refresh runs in the background
// @Tags         rates
// @Produce      json
// @Success      200  {object}  domain.RatesSnapshot
// @Failure      500  {object}  map[string]interface{}
// @Router       /api/rates [get]
func (h *Handler) GetRates(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-rates")
	defer span.End()

	snapshot, err := h.ratesService.CurrentRates(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GetRate godoc
// @Summary      Get the rate for one currency pair
// @Description  Resolves a direct, inverse, or bridged rate for the pair
// @Tags         rates
// @Produce      json
// @Param        from  path  string  true  "Source currency (e.g., BTC)"
// @Param        to    path  string  true  "Target currency (e.g., USD)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/rates/{from}/{to} [get]
func (h *Handler) GetRate(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-rate")
	defer span.End()

	from, err := domain.ParseCode(c.Param("from"))
	if err != nil {
		respondError(c, err)
		return
	}
	to, err := domain.ParseCode(c.Param("to"))
	if err != nil {
		respondError(c, err)
		return
	}
	span.SetAttributes(attribute.String("from", string(from)), attribute.String("to", string(to)))

	rate, path, err := h.ratesService.ResolveRate(ctx, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"from": from,
		"to":   to,
		"rate": rate,
		"path": path,
	})
}

// GetRateHistory godoc
// @Summary      Get archived rates for a currency pair
// @Description  Returns recent archived observations for the pair, newest first
// @Tags         rates
// @Produce      json
// @Param        from   query  string  true   "Source currency (e.g., BTC)"
// @Param        to     query  string  true   "Target currency (e.g., USD)"
// @Param        limit  query  int     false  "Number of points (default 50, max 500)"  default(50)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/rates/history [get]
func (h *Handler) GetRateHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-rate-history")
	defer span.End()

	from, err := domain.ParseCode(c.Query("from"))
	if err != nil {
		respondError(c, err)
		return
	}
	to, err := domain.ParseCode(c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	points, err := h.ratesService.RateHistory(ctx, from, to, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"from":   from,
		"to":     to,
		"points": points,
	})
}
