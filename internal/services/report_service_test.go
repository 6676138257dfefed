package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/averos/go-gift-report/internal/domain"
	"github.com/averos/go-gift-report/internal/report"
)

func testCurrency() report.CurrencySettings {
	return report.CurrencySettings{Code: "USD", Symbol: "$", Locale: language.English}
}

func TestParseFilters_DatesAndWidening(t *testing.T) {
	f := ParseFilters(RawFilters{
		DateFrom: "2025-06-01",
		DateTo:   "2025-06-30",
	})
	if f.DateFrom == nil || !f.DateFrom.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("DateFrom = %v", f.DateFrom)
	}
	// The named upper day is included: the bound is the following midnight.
	if f.DateTo == nil || !f.DateTo.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("DateTo = %v", f.DateTo)
	}
}

func TestParseFilters_MalformedValuesAreDropped(t *testing.T) {
	f := ParseFilters(RawFilters{
		DateFrom:   "06/01/2025",
		DateTo:     "not-a-date",
		GiftStatus: "pending",
		Product:    "abc",
	})
	if f.DateFrom != nil || f.DateTo != nil {
		t.Fatalf("malformed dates kept: %+v", f)
	}
	if f.GiftStatus != "" {
		t.Fatalf("invalid status kept: %q", f.GiftStatus)
	}
	if f.ProductID != 0 {
		t.Fatalf("invalid product kept: %d", f.ProductID)
	}
}

func TestParseFilters_StatusAndText(t *testing.T) {
	f := ParseFilters(RawFilters{
		GiftStatus:  " Claimed ",
		Product:     "7",
		GifterEmail: "  alice@example.com ",
	})
	if f.GiftStatus != domain.GiftStatusClaimed {
		t.Fatalf("status = %q", f.GiftStatus)
	}
	if f.ProductID != 7 {
		t.Fatalf("product = %d", f.ProductID)
	}
	if f.GifterEmail != "alice@example.com" {
		t.Fatalf("email = %q", f.GifterEmail)
	}
}

func TestGetPage_ClampsAndCounts(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedGift(t, db, fmt.Sprintf("u%d@example.com", i), 10, base.Add(time.Duration(i)*time.Hour))
	}

	svc := &ReportService{DB: db, Currency: testCurrency()}
	ctx := context.Background()

	// Out-of-range paging input is clamped, not rejected.
	page, err := svc.GetPage(ctx, domain.ReportFilters{}, 0, 0)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if page.Page != 1 || page.PerPage != DefaultPerPage {
		t.Fatalf("clamped paging = %d/%d", page.Page, page.PerPage)
	}
	if page.Total != 5 || len(page.Rows) != 5 {
		t.Fatalf("total = %d, rows = %d", page.Total, len(page.Rows))
	}
	if page.Summary.TotalGifts != 5 {
		t.Fatalf("summary = %+v", page.Summary)
	}

	page, err = svc.GetPage(ctx, domain.ReportFilters{}, 2, 2)
	if err != nil {
		t.Fatalf("GetPage p2: %v", err)
	}
	if len(page.Rows) != 2 || page.TotalPages != 3 {
		t.Fatalf("p2 rows = %d, total pages = %d", len(page.Rows), page.TotalPages)
	}

	page, err = svc.GetPage(ctx, domain.ReportFilters{}, 1, MaxPerPage+1)
	if err != nil {
		t.Fatalf("GetPage oversized: %v", err)
	}
	if page.PerPage != MaxPerPage {
		t.Fatalf("per page = %d, want %d", page.PerPage, MaxPerPage)
	}
}

func TestGetPage_PastLastPageIsEmptyNotError(t *testing.T) {
	db := newTestDB(t)
	seedGift(t, db, "only@example.com", 10, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))

	svc := &ReportService{DB: db, Currency: testCurrency()}
	page, err := svc.GetPage(context.Background(), domain.ReportFilters{}, 9, 25)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if len(page.Rows) != 0 || page.Total != 1 {
		t.Fatalf("page = %+v", page)
	}
}
