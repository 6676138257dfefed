// Package services – ExportService
//
// This file implements the streamed CSV export. The full result set is never
// materialized: rows are fetched in fixed-size chunks and written through an
// encoding/csv writer as they arrive, so the memory footprint is bounded by
// the chunk size regardless of how many gifts match the filters.
package services

import (
	"context"
	"encoding/csv"
	"io"

	"gorm.io/gorm"

	"github.com/averos/go-gift-report/internal/domain"
	"github.com/averos/go-gift-report/internal/repo"
	"github.com/averos/go-gift-report/internal/report"
)

// ExportChunkSize is the number of rows fetched and written per round trip.
const ExportChunkSize = 1000

// utf8BOM prefixes the CSV stream so spreadsheet applications detect UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportService streams the filtered gift report as CSV.
type ExportService struct {
	// DB is the database handle used for the chunked export query.
	DB *gorm.DB

	// Currency drives money formatting, identical to the HTML report path.
	Currency report.CurrencySettings
}

// StreamCSV writes the complete filtered report to w as UTF-8 CSV: a BOM, the
// fixed header row, then every matching row in purchase-time-descending order.
//
// The export terminates when a fetched chunk comes back smaller than the
// chunk size. Write errors and store errors abort the stream; there is no
// partial-output recovery beyond what the caller's transport provides.
func (s *ExportService) StreamCSV(ctx context.Context, w io.Writer, f domain.ReportFilters) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(report.CSVHeader()); err != nil {
		return err
	}

	for offset := 0; ; offset += ExportChunkSize {
		recs, err := repo.ListGifts(ctx, s.DB, f, ExportChunkSize, offset)
		if err != nil {
			return err
		}
		for i := range recs {
			row := report.BuildRow(recs[i], s.Currency)
			if err := cw.Write(row.CSVRecord()); err != nil {
				return err
			}
		}
		// Flush per chunk so the transport can stream instead of buffering.
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		if len(recs) < ExportChunkSize {
			return nil
		}
	}
}
