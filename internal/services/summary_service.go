// Package services – SummaryService
//
// This file implements the weekly digest: aggregate gift activity for the
// trailing seven days, rendered as an HTML email and delivered to the
// configured administrator address.
package services

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/averos/go-gift-report/internal/mail"
	"github.com/averos/go-gift-report/internal/repo"
	"github.com/averos/go-gift-report/internal/report"
)

// digestTemplate renders the weekly digest email body.
const digestTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 640px; margin: 0 auto; padding: 20px;">
<h1 style="color: #2c3e50;">Weekly Gift Summary</h1>
<p>{{.StartDate}} to {{.EndDate}}</p>

<table cellpadding="8" cellspacing="0" border="0" style="border: 1px solid #e9ecef; border-collapse: collapse;">
<tr><td>Total gifts</td><td><strong>{{.Summary.TotalGifts}}</strong></td></tr>
<tr><td>Claimed</td><td><strong>{{.Summary.ClaimedGifts}}</strong></td></tr>
<tr><td>Unclaimed</td><td><strong>{{.Summary.UnclaimedGifts}}</strong></td></tr>
<tr><td>Claim rate</td><td><strong>{{.ClaimRate}}%</strong></td></tr>
<tr><td>Total revenue</td><td><strong>{{.TotalRevenue}}</strong></td></tr>
<tr><td>Claimed revenue</td><td><strong>{{.ClaimedRevenue}}</strong></td></tr>
</table>

{{if .Products}}
<h2 style="color: #2c3e50;">By product</h2>
<table cellpadding="8" cellspacing="0" border="0" style="border: 1px solid #e9ecef; border-collapse: collapse;">
<tr><th align="left">Product</th><th>Total</th><th>Claimed</th><th>Unclaimed</th><th align="right">Revenue</th></tr>
{{- range .Products}}
<tr><td>{{.Name}}</td><td align="center">{{.Total}}</td><td align="center">{{.Claimed}}</td><td align="center">{{.Unclaimed}}</td><td align="right">{{.Revenue}}</td></tr>
{{- end}}
</table>
{{end}}

{{if .Days}}
<h2 style="color: #2c3e50;">By day</h2>
<table cellpadding="8" cellspacing="0" border="0" style="border: 1px solid #e9ecef; border-collapse: collapse;">
<tr><th align="left">Day</th><th>Total</th><th>Claimed</th><th>Unclaimed</th><th align="right">Revenue</th></tr>
{{- range .Days}}
<tr><td>{{.Day}}</td><td align="center">{{.Total}}</td><td align="center">{{.Claimed}}</td><td align="center">{{.Unclaimed}}</td><td align="right">{{.Revenue}}</td></tr>
{{- end}}
</table>
{{end}}
</body>
</html>`

var digestTmpl = template.Must(template.New("weekly-digest").Parse(digestTemplate))

// digestView is the pre-formatted data handed to the digest template.
type digestView struct {
	StartDate      string
	EndDate        string
	Summary        repo.Summary
	ClaimRate      string
	TotalRevenue   string
	ClaimedRevenue string
	Products       []digestLine
	Days           []digestLine
}

type digestLine struct {
	Name      string
	Day       string
	Total     int64
	Claimed   int64
	Unclaimed int64
	Revenue   string
}

// SummaryService builds and delivers the weekly activity digest.
type SummaryService struct {
	// DB is the database handle used for the aggregate queries.
	DB *gorm.DB

	// Dispatcher delivers the digest email.
	Dispatcher *mail.Dispatcher

	// Currency drives money formatting in the digest tables.
	Currency report.CurrencySettings

	// SiteName labels the digest subject line.
	SiteName string

	// AdminEmail is the digest recipient.
	AdminEmail string

	// Log is the service logger.
	Log zerolog.Logger
}

// WeekData aggregates the trailing seven days ending at now.
func (s *SummaryService) WeekData(ctx context.Context, now time.Time) (repo.WeekData, error) {
	return repo.WeekStats(ctx, s.DB, now.Add(-7*24*time.Hour), now)
}

// SendDigest aggregates the trailing week and emails the digest to the
// configured administrator. Returns ErrNoDigestRecipient when no recipient
// is configured.
func (s *SummaryService) SendDigest(ctx context.Context, now time.Time) (repo.WeekData, error) {
	if strings.TrimSpace(s.AdminEmail) == "" {
		return repo.WeekData{}, ErrNoDigestRecipient
	}

	data, err := s.WeekData(ctx, now)
	if err != nil {
		return data, err
	}

	var body strings.Builder
	if err := digestTmpl.Execute(&body, s.buildView(data)); err != nil {
		return data, err
	}

	subject := fmt.Sprintf("Weekly Gift Summary - %s", s.SiteName)
	err = s.Dispatcher.Send(ctx, mail.Message{
		To:      s.AdminEmail,
		Subject: subject,
		HTML:    body.String(),
	})
	if err != nil {
		return data, err
	}

	s.Log.Info().
		Str("to", s.AdminEmail).
		Int64("total_gifts", data.Summary.TotalGifts).
		Msg("weekly digest sent")
	return data, nil
}

// buildView formats the aggregate data for the template.
func (s *SummaryService) buildView(data repo.WeekData) digestView {
	const dayLayout = "2006-01-02"

	v := digestView{
		StartDate:      data.StartDate.Format(dayLayout),
		EndDate:        data.EndDate.Format(dayLayout),
		Summary:        data.Summary,
		ClaimRate:      fmt.Sprintf("%.2f", data.Summary.ClaimRate),
		TotalRevenue:   s.Currency.Format(data.Summary.TotalRevenue),
		ClaimedRevenue: s.Currency.Format(data.ClaimedRevenue),
	}

	for _, p := range data.Products {
		v.Products = append(v.Products, digestLine{
			Name:      p.ProductName,
			Total:     p.Total,
			Claimed:   p.Claimed,
			Unclaimed: p.Unclaimed,
			Revenue:   s.Currency.Format(p.Revenue),
		})
	}
	for _, d := range data.Days {
		v.Days = append(v.Days, digestLine{
			Day:       d.Day,
			Total:     d.Total,
			Claimed:   d.Claimed,
			Unclaimed: d.Unclaimed,
			Revenue:   s.Currency.Format(d.Revenue),
		})
	}
	return v
}
