// Export HTTP handler.
//
// This file exposes the streamed CSV export:
//   - GET /report/export
//
// The export shares the report's filter parameters and streams the full
// result set in chunks; there is no pagination and no in-memory
// materialization. Cancellation mid-export is not supported beyond the
// client dropping the connection.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/averos/go-gift-report/internal/http/middleware"
	"github.com/averos/go-gift-report/internal/services"
)

// ExportCSV streams the filtered report as a CSV attachment.
func (h *Handlers) ExportCSV(c *gin.Context) {
	f := services.ParseFilters(rawFiltersFromQuery(c))

	filename := "gift-report-" + time.Now().UTC().Format("2006-01-02") + ".csv"
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)

	if err := h.exportSvc.StreamCSV(c.Request.Context(), c.Writer, f); err != nil {
		// The BOM and header are likely already written, so an error status
		// cannot be sent. Log and let the truncated stream signal failure.
		middleware.LoggerFrom(c).Error().Err(err).Msg("csv export aborted")
	}
}
