package handler

import (
	"fmt"
	"net/http"

	"pocket-change/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// Convert godoc
// @Summary      Convert an amount between two currencies
// @Description  Converts using the direct rate, falling back to the inverse or a bridge through the base currency
// @Tags         convert
// @Produce      json
// @Param        amount  query  string  true  "Amount to convert"
// @Param        from    query  string  true  "Source currency (e.g., BTC)"
// @Param        to      query  string  true  "Target currency (e.g., USD)"
// @Success      200  {object}  domain.Conversion
// @Failure      400  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/convert [get]
func (h *Handler) Convert(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.convert")
	defer span.End()

	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		respondError(c, fmt.Errorf("%w: invalid amount %q", domain.ErrValidation, c.Query("amount")))
		return
	}

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
	span.SetAttributes(attribute.String("from", string(from)), attribute.String("to", string(to)))

	conv, err := h.ratesService.Convert(ctx, amount, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}
