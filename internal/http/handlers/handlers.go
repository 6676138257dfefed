// Package handlers provides HTTP handler implementations for the admin API.
//
// Handlers are transport-thin: they parse and validate input, delegate to
// application services, and translate service errors into HTTP results. The
// Handlers struct bundles the service dependencies so the router can wire
// everything in one place.
package handlers

import (
	"time"

	"gorm.io/gorm"

	"github.com/averos/go-gift-report/internal/domain"
	"github.com/averos/go-gift-report/internal/services"
)

// Handlers aggregates the service dependencies behind the API endpoints.
type Handlers struct {
	reportSvc   *services.ReportService
	exportSvc   *services.ExportService
	reminderSvc *services.ReminderService
	summarySvc  *services.SummaryService

	// db and idemTTL back the idempotency records for bulk resend.
	db      *gorm.DB
	idemTTL time.Duration

	// reminderCfg is the explicit configuration handed to the reminder
	// engine and dispatcher on every invocation.
	reminderCfg domain.ReminderConfig
}

// New constructs the handler set.
func New(
	reportSvc *services.ReportService,
	exportSvc *services.ExportService,
	reminderSvc *services.ReminderService,
	summarySvc *services.SummaryService,
	db *gorm.DB,
	idemTTL time.Duration,
	reminderCfg domain.ReminderConfig,
) *Handlers {
	return &Handlers{
		reportSvc:   reportSvc,
		exportSvc:   exportSvc,
		reminderSvc: reminderSvc,
		summarySvc:  summarySvc,
		db:          db,
		idemTTL:     idemTTL,
		reminderCfg: reminderCfg,
	}
}
