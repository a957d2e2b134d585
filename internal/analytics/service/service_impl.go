package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/praxis/internal/analytics/domain"
	"github.com/smallbiznis/praxis/internal/config"
	invoicedomain "github.com/smallbiznis/praxis/internal/invoice/domain"
	timesheetdomain "github.com/smallbiznis/praxis/internal/timesheet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Billing *config.BillingConfigHolder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	billing *config.BillingConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("analytics.service"),
		billing: p.Billing,
	}
}

type entryRow struct {
	ProjectID       snowflake.ID
	ProjectName     string
	ClientID        snowflake.ID
	ProjectRate     *int64
	DurationMinutes int64
	RateCents       int64
	BillableCents   *int64
	InvoicedCents   *int64
	Status          timesheetdomain.Status
}

// originalCents mirrors the valuation used during WIP aggregation: the
// stored billable amount wins, then entry rate, project rate, firm default.
func (r entryRow) originalCents(defaultRateCents int64) int64 {
	entry := timesheetdomain.TimeEntry{
		DurationMinutes: r.DurationMinutes,
		RateCents:       r.RateCents,
		BillableCents:   r.BillableCents,
	}
	rate := defaultRateCents
	if r.ProjectRate != nil && *r.ProjectRate > 0 {
		rate = *r.ProjectRate
	}
	return entry.OriginalCents(rate)
}

func (s *Service) WIPBalances(ctx context.Context, req domain.WIPBalanceRequest) ([]domain.WIPBalance, error) {
	rows, err := s.entryRows(ctx, req.ClientID, timesheetdomain.StatusUninvoiced)
	if err != nil {
		return nil, err
	}

	defaultRate := s.billing.Current().DefaultHourlyRateCents

	byProject := make(map[snowflake.ID]*domain.WIPBalance)
	order := make([]snowflake.ID, 0)
	for _, row := range rows {
		balance, ok := byProject[row.ProjectID]
		if !ok {
			balance = &domain.WIPBalance{
				ProjectID:   row.ProjectID,
				ProjectName: row.ProjectName,
				ClientID:    row.ClientID,
			}
			byProject[row.ProjectID] = balance
			order = append(order, row.ProjectID)
		}
		balance.EntryCount++
		balance.BalanceCents += row.originalCents(defaultRate)
	}

	balances := make([]domain.WIPBalance, 0, len(order))
	for _, id := range order {
		balances = append(balances, *byProject[id])
	}
	return balances, nil
}

func (s *Service) RealizationRates(ctx context.Context, req domain.RealizationRequest) ([]domain.Realization, error) {
	rows, err := s.entryRows(ctx, req.ClientID, timesheetdomain.StatusInvoiced, timesheetdomain.StatusWrittenOff)
	if err != nil {
		return nil, err
	}

	defaultRate := s.billing.Current().DefaultHourlyRateCents

	byProject := make(map[snowflake.ID]*domain.Realization)
	order := make([]snowflake.ID, 0)
	for _, row := range rows {
		realization, ok := byProject[row.ProjectID]
		if !ok {
			realization = &domain.Realization{
				ProjectID:   row.ProjectID,
				ProjectName: row.ProjectName,
			}
			byProject[row.ProjectID] = realization
			order = append(order, row.ProjectID)
		}
		realization.CalculatedCents += row.originalCents(defaultRate)
		if row.InvoicedCents != nil {
			realization.InvoicedCents += *row.InvoicedCents
		}
	}

	realizations := make([]domain.Realization, 0, len(order))
	for _, id := range order {
		item := byProject[id]
		if item.CalculatedCents > 0 {
			item.Rate = float64(item.InvoicedCents) / float64(item.CalculatedCents)
		} else {
			item.Rate = 1.0
		}
		realizations = append(realizations, *item)
	}
	return realizations, nil
}

func (s *Service) InvoiceAging(ctx context.Context) ([]domain.AgingBucket, error) {
	var invoices []invoicedomain.Invoice
	err := s.db.WithContext(ctx).
		Where("status = ?", invoicedomain.StatusSent).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}

	policy := s.billing.Current()
	now := time.Now().UTC()

	buckets := make([]domain.AgingBucket, len(policy.AgingBuckets))
	for i, bucket := range policy.AgingBuckets {
		buckets[i] = domain.AgingBucket{Label: bucket.Label}
	}

	for _, invoice := range invoices {
		issued := invoice.CreatedAt
		if invoice.IssuedAt != nil {
			issued = *invoice.IssuedAt
		}
		days := int(now.Sub(issued).Hours() / 24)
		if days < 0 {
			days = 0
		}
		for i, bucket := range policy.AgingBuckets {
			if days < bucket.MinDays {
				continue
			}
			if bucket.MaxDays != nil && days > *bucket.MaxDays {
				continue
			}
			buckets[i].InvoiceCount++
			buckets[i].TotalCents += invoice.TotalCents
			break
		}
	}

	return buckets, nil
}

func (s *Service) entryRows(ctx context.Context, clientID string, statuses ...timesheetdomain.Status) ([]entryRow, error) {
	query := s.db.WithContext(ctx).
		Table("time_entries").
		Select(`time_entries.project_id,
			projects.name AS project_name,
			projects.client_id,
			projects.hourly_rate_cents AS project_rate,
			time_entries.duration_minutes,
			time_entries.rate_cents,
			time_entries.billable_cents,
			time_entries.invoiced_cents,
			time_entries.status`).
		Joins("JOIN projects ON projects.id = time_entries.project_id").
		Where("time_entries.billable = ?", true).
		Where("time_entries.status IN ?", statuses)

	if value := strings.TrimSpace(clientID); value != "" {
		id, err := snowflake.ParseString(value)
		if err != nil || id == 0 {
			return nil, domain.ErrInvalidClient
		}
		query = query.Where("projects.client_id = ?", id)
	}

	var rows []entryRow
	if err := query.Order("time_entries.project_id, time_entries.id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
