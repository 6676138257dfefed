// Report HTTP handlers.
//
// This file exposes the REST endpoints for the gift report:
//   - GET /report          (one page: JSON by default, HTML with ?format=html)
//   - GET /report/summary  (aggregate block only)
//   - GET /report/week     (trailing-week digest data)
//
// Filter parameters are shared across all report endpoints and follow the
// discard-on-invalid policy: a malformed value drops that one filter instead
// of failing the request.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/averos/go-gift-report/internal/http/middleware"
	"github.com/averos/go-gift-report/internal/report"
	"github.com/averos/go-gift-report/internal/services"
)

// rawFiltersFromQuery collects the filter parameters off the query string.
func rawFiltersFromQuery(c *gin.Context) services.RawFilters {
	return services.RawFilters{
		DateFrom:           c.Query("date_from"),
		DateTo:             c.Query("date_to"),
		GiftStatus:         c.Query("gift_status"),
		Product:            c.Query("product"),
		GifterEmail:        c.Query("gifter_email"),
		RecipientEmail:     c.Query("recipient_email"),
		TransactionID:      c.Query("transaction_id"),
		ClaimTransactionID: c.Query("claim_transaction_id"),
		RedemptionFrom:     c.Query("redemption_from"),
		RedemptionTo:       c.Query("redemption_to"),
	}
}

// GetReport returns one page of the filtered gift report. The default
// response is the JSON page envelope; with format=html the same page is
// rendered as the admin table fragment.
func (h *Handlers) GetReport(c *gin.Context) {
	f := services.ParseFilters(rawFiltersFromQuery(c))
	page := atoiDefault(c.Query("page"), 1)
	perPage := atoiDefault(c.Query("per_page"), services.DefaultPerPage)

	pg, err := h.reportSvc.GetPage(c.Request.Context(), f, page, perPage)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeReportFailed, "report query failed")
		return
	}

	if c.Query("format") == "html" {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.Status(http.StatusOK)
		if err := report.RenderTable(c.Writer, pg.Rows); err != nil {
			// Headers are already out; all we can do is record the failure.
			middleware.LoggerFrom(c).Error().Err(err).Msg("report table render failed")
		}
		return
	}

	ok(c, http.StatusOK, pg)
}

// GetSummary returns the aggregate block for the filter set.
func (h *Handlers) GetSummary(c *gin.Context) {
	f := services.ParseFilters(rawFiltersFromQuery(c))

	sum, err := h.reportSvc.Summary(c.Request.Context(), f)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeReportFailed, "summary query failed")
		return
	}
	ok(c, http.StatusOK, sum)
}

// GetWeek returns the trailing-week aggregate data used by the digest email.
func (h *Handlers) GetWeek(c *gin.Context) {
	data, err := h.summarySvc.WeekData(c.Request.Context(), time.Now().UTC())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeReportFailed, "week aggregation failed")
		return
	}
	ok(c, http.StatusOK, data)
}

// atoiDefault parses s as a positive integer, returning def on failure.
func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
