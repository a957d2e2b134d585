package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/praxis/internal/audit/domain"
	clientdomain "github.com/smallbiznis/praxis/internal/client/domain"
	"github.com/smallbiznis/praxis/internal/config"
	"github.com/smallbiznis/praxis/internal/invoice/domain"
	"github.com/smallbiznis/praxis/internal/observability/metrics"
	projectdomain "github.com/smallbiznis/praxis/internal/project/domain"
	timesheetdomain "github.com/smallbiznis/praxis/internal/timesheet/domain"
	wipdomain "github.com/smallbiznis/praxis/internal/wip/domain"
	"github.com/smallbiznis/praxis/pkg/db/pagination"
	"github.com/smallbiznis/praxis/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Billing  *config.BillingConfigHolder
	Repo     domain.Repository
	Entries  timesheetdomain.Repository
	Clients  repository.Repository[clientdomain.Client]
	Projects repository.Repository[projectdomain.Project]
	Tasks    repository.Repository[projectdomain.Task]
	Audit    auditdomain.Recorder
	Metrics  *metrics.BillingMetrics
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	billing  *config.BillingConfigHolder
	repo     domain.Repository
	entries  timesheetdomain.Repository
	clients  repository.Repository[clientdomain.Client]
	projects repository.Repository[projectdomain.Project]
	tasks    repository.Repository[projectdomain.Task]
	audit    auditdomain.Recorder
	metrics  *metrics.BillingMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("invoice.service"),
		genID:    p.GenID,
		billing:  p.Billing,
		repo:     p.Repo,
		entries:  p.Entries,
		clients:  p.Clients,
		projects: p.Projects,
		tasks:    p.Tasks,
		audit:    p.Audit,
		metrics:  p.Metrics,
	}
}

// Save reconciles the requested composition and persists the whole write set
// in one transaction. Validation failures abort before anything is written;
// re-running with identical input converges on the same stored state.
func (s *Service) Save(ctx context.Context, req domain.SaveInvoiceRequest) (domain.InvoiceDetail, error) {
	clientID, err := snowflake.ParseString(strings.TrimSpace(req.ClientID))
	if err != nil || clientID == 0 {
		return domain.InvoiceDetail{}, domain.ErrInvalidClient
	}

	owner, err := s.clients.FindOne(ctx, &clientdomain.Client{ID: clientID})
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	if owner == nil {
		return domain.InvoiceDetail{}, domain.ErrInvalidClient
	}

	projectIDs, err := parseProjectIDs(req.ProjectIDs)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	if len(projectIDs) == 0 {
		return domain.InvoiceDetail{}, domain.ErrInvalidProject
	}

	var invoiceID snowflake.ID
	if value := strings.TrimSpace(req.ID); value != "" {
		invoiceID, err = snowflake.ParseString(value)
		if err != nil || invoiceID == 0 {
			return domain.InvoiceDetail{}, domain.ErrInvalidID
		}
	}

	overrides, err := parseOverrides(req.Overrides)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	reasons, err := parseReasons(req.Reasons)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}

	cfg := s.billing.Current()
	now := time.Now().UTC()

	var detail domain.InvoiceDetail
	var writeOffs []wipdomain.Adjustment

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice *domain.Invoice
		var existing []wipdomain.Adjustment

		if invoiceID != 0 {
			invoice, err = s.repo.FindByID(ctx, tx, invoiceID)
			if err != nil {
				return err
			}
			if invoice == nil {
				return domain.ErrNotFound
			}
			if invoice.Status != domain.StatusDraft {
				return domain.ErrNotDraft
			}

			stored, err := s.repo.ListWriteOffs(ctx, tx, invoiceID)
			if err != nil {
				return err
			}
			existing = writeOffRowsToAdjustments(stored)

			// Return claimed entries to the pool so the composition can be
			// rebuilt from scratch.
			if err := s.entries.ReleaseInvoice(ctx, tx, invoiceID); err != nil {
				return err
			}
		}

		buckets, err := s.buildBuckets(ctx, tx, projectIDs, overrides, cfg)
		if err != nil {
			return err
		}

		result, err := domain.Reconcile(domain.ReconcileInput{
			Buckets:           buckets,
			Costs:             costInputs(req.Costs),
			ExistingWriteOffs: existing,
			Reasons:           reasons,
			TaxRateBps:        cfg.TaxRateBps,
			ToleranceCents:    cfg.AdjustmentToleranceCents,
		})
		if err != nil {
			return err
		}

		if invoice == nil {
			number, err := s.nextNumber(ctx, tx, now)
			if err != nil {
				return err
			}
			invoice = &domain.Invoice{
				ID:        s.genID.Generate(),
				ClientID:  clientID,
				Number:    number,
				Status:    domain.StatusDraft,
				CreatedAt: now,
			}
		}

		invoice.ClientID = clientID
		invoice.ProjectIDs = datatypes.NewJSONSlice(projectIDs)
		invoice.SubtotalCents = result.SubtotalCents
		invoice.TaxRateBps = cfg.TaxRateBps
		invoice.TaxCents = result.TaxCents
		invoice.TotalCents = result.TotalCents
		invoice.DueAt = req.DueAt
		invoice.Notes = strings.TrimSpace(req.Notes)
		invoice.UpdatedAt = now

		if invoiceID == 0 {
			if err := s.repo.Insert(ctx, tx, invoice); err != nil {
				return err
			}
		} else {
			if err := s.repo.Update(ctx, tx, invoice); err != nil {
				return err
			}
		}

		lineItems := make([]domain.InvoiceLineItem, 0, len(result.LineItems))
		for _, item := range result.LineItems {
			item.ID = s.genID.Generate()
			item.InvoiceID = invoice.ID
			item.CreatedAt = now
			lineItems = append(lineItems, item)
		}
		if err := s.repo.ReplaceLineItems(ctx, tx, invoice.ID, lineItems); err != nil {
			return err
		}

		attached := make(map[snowflake.ID]struct{}, len(result.EntryUpdates))
		for _, update := range result.EntryUpdates {
			attached[update.EntryID] = struct{}{}
		}

		kept := make([]wipdomain.Adjustment, 0, len(result.WriteOffs))
		rows := make([]domain.WriteOffEntry, 0, len(result.WriteOffs))
		for _, adjustment := range result.WriteOffs {
			// A released entry that did not rejoin the composition leaves the
			// invoice, and its write-off record goes with it.
			if _, ok := attached[adjustment.EntryID]; !ok {
				continue
			}
			kept = append(kept, adjustment)
			rows = append(rows, domain.WriteOffEntry{
				ID:              s.genID.Generate(),
				InvoiceID:       invoice.ID,
				TimeEntryID:     adjustment.EntryID,
				TaskID:          adjustment.TaskID,
				UserID:          adjustment.UserID,
				Date:            adjustment.Date,
				Description:     adjustment.Description,
				OriginalCents:   adjustment.OriginalCents,
				AdjustmentCents: adjustment.AdjustmentCents,
				ReasonCode:      adjustment.ReasonCode,
				Comments:        adjustment.Comments,
				CreatedAt:       now,
				UpdatedAt:       now,
			})
		}
		if err := s.repo.ReplaceWriteOffs(ctx, tx, invoice.ID, rows); err != nil {
			return err
		}

		updates := make([]timesheetdomain.InvoiceApplication, 0, len(result.EntryUpdates))
		for _, update := range result.EntryUpdates {
			updates = append(updates, timesheetdomain.InvoiceApplication{
				EntryID:        update.EntryID,
				Status:         update.Status,
				InvoicedCents:  update.InvoicedCents,
				WriteOffReason: update.WriteOffReason,
			})
		}
		if err := s.entries.ApplyInvoice(ctx, tx, invoice.ID, updates); err != nil {
			return err
		}

		if err := s.audit.Record(ctx, tx, auditdomain.Event{
			Actor:  req.Actor,
			Action: "invoice.saved",
			Target: "invoice:" + invoice.ID.String(),
			Metadata: map[string]any{
				"client_id":      invoice.ClientID.String(),
				"subtotal_cents": invoice.SubtotalCents,
				"total_cents":    invoice.TotalCents,
				"write_offs":     len(rows),
			},
		}); err != nil {
			return err
		}

		detail = domain.InvoiceDetail{
			Invoice:   *invoice,
			LineItems: lineItems,
			WriteOffs: rows,
		}
		writeOffs = kept
		return nil
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordReconciliation("failed")
		}
		return domain.InvoiceDetail{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordReconciliation("saved")
		for _, adjustment := range writeOffs {
			direction := "write_off"
			if adjustment.AdjustmentCents < 0 {
				direction = "write_on"
			}
			s.metrics.RecordAdjustment(direction, string(adjustment.ReasonCode), adjustment.AdjustmentCents)
		}
	}

	s.log.Info("invoice saved",
		zap.String("invoice_id", detail.Invoice.ID.String()),
		zap.String("number", detail.Invoice.Number),
		zap.Int64("total_cents", detail.Invoice.TotalCents),
		zap.Int("write_offs", len(detail.WriteOffs)),
	)

	return detail, nil
}

// Reconcile is the dry-run variant of Save: same pipeline, no writes.
func (s *Service) Reconcile(ctx context.Context, req domain.ReconcileRequest) (domain.ReconcilePreview, error) {
	projectIDs, err := parseProjectIDs(req.ProjectIDs)
	if err != nil {
		return domain.ReconcilePreview{}, err
	}
	if len(projectIDs) == 0 {
		return domain.ReconcilePreview{}, domain.ErrInvalidProject
	}

	overrides, err := parseOverrides(req.Overrides)
	if err != nil {
		return domain.ReconcilePreview{}, err
	}
	reasons, err := parseReasons(req.Reasons)
	if err != nil {
		return domain.ReconcilePreview{}, err
	}

	cfg := s.billing.Current()
	buckets, err := s.buildBuckets(ctx, s.db, projectIDs, overrides, cfg)
	if err != nil {
		return domain.ReconcilePreview{}, err
	}

	result, err := domain.Reconcile(domain.ReconcileInput{
		Buckets:        buckets,
		Costs:          costInputs(req.Costs),
		Reasons:        reasons,
		TaxRateBps:     cfg.TaxRateBps,
		ToleranceCents: cfg.AdjustmentToleranceCents,
	})
	if err != nil {
		return domain.ReconcilePreview{}, err
	}

	return domain.ReconcilePreview{
		LineItems:     result.LineItems,
		SubtotalCents: result.SubtotalCents,
		TaxRateBps:    cfg.TaxRateBps,
		TaxCents:      result.TaxCents,
		TotalCents:    result.TotalCents,
		WriteOffs:     len(result.WriteOffs),
		EntryUpdates:  len(result.EntryUpdates),
	}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	filter := domain.ListFilter{}
	if value := strings.TrimSpace(req.ClientID); value != "" {
		id, err := snowflake.ParseString(value)
		if err != nil || id == 0 {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidClient
		}
		filter.ClientID = id
	}
	if value := strings.TrimSpace(req.Status); value != "" {
		status := domain.Status(strings.ToUpper(value))
		if !status.Valid() {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(invoice *domain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        invoice.ID.String(),
			CreatedAt: invoice.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	invoices := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}

	resp := domain.ListInvoiceResponse{Invoices: invoices}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetInvoiceRequest) (domain.InvoiceDetail, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}

	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	if invoice == nil {
		return domain.InvoiceDetail{}, domain.ErrNotFound
	}

	lineItems, err := s.repo.ListLineItems(ctx, s.db, id)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	writeOffs, err := s.repo.ListWriteOffs(ctx, s.db, id)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}

	return domain.InvoiceDetail{
		Invoice:   *invoice,
		LineItems: lineItems,
		WriteOffs: writeOffs,
	}, nil
}

func (s *Service) Approve(ctx context.Context, req domain.TransitionRequest) (domain.Invoice, error) {
	return s.transition(ctx, req, domain.StatusDraft, domain.StatusApproved, "invoice.approved", func(invoice *domain.Invoice, now time.Time) {
		invoice.IssuedAt = &now
		if invoice.DueAt == nil {
			due := now.AddDate(0, 0, 30)
			invoice.DueAt = &due
		}
	})
}

func (s *Service) Send(ctx context.Context, req domain.TransitionRequest) (domain.Invoice, error) {
	return s.transition(ctx, req, domain.StatusApproved, domain.StatusSent, "invoice.sent", nil)
}

func (s *Service) MarkPaid(ctx context.Context, req domain.TransitionRequest) (domain.Invoice, error) {
	return s.transition(ctx, req, domain.StatusSent, domain.StatusPaid, "invoice.paid", func(invoice *domain.Invoice, now time.Time) {
		invoice.PaidAt = &now
	})
}

func (s *Service) transition(ctx context.Context, req domain.TransitionRequest, from, to domain.Status, action string, apply func(*domain.Invoice, time.Time)) (domain.Invoice, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Invoice{}, err
	}

	now := time.Now().UTC()
	var updated domain.Invoice

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}
		if invoice.Status != from {
			return domain.ErrInvalidTransition
		}

		invoice.Status = to
		invoice.UpdatedAt = now
		if apply != nil {
			apply(invoice, now)
		}

		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}

		if err := s.audit.Record(ctx, tx, auditdomain.Event{
			Actor:  req.Actor,
			Action: action,
			Target: "invoice:" + invoice.ID.String(),
			Metadata: map[string]any{
				"from": string(from),
				"to":   string(to),
			},
		}); err != nil {
			return err
		}

		updated = *invoice
		return nil
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	return updated, nil
}

func (s *Service) buildBuckets(ctx context.Context, db *gorm.DB, projectIDs []snowflake.ID, overrides map[bucketKey]int64, cfg config.BillingConfig) ([]wipdomain.TaskBucket, error) {
	items, err := s.entries.ListUnbilled(ctx, db, projectIDs)
	if err != nil {
		return nil, err
	}

	entries := make([]timesheetdomain.TimeEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}

	names, err := s.buildNameIndex(ctx, db, entries)
	if err != nil {
		return nil, err
	}

	buckets := wipdomain.Aggregate(entries, names, cfg.DefaultHourlyRateCents)
	for i, bucket := range buckets {
		billed, ok := overrides[bucketKey{projectID: bucket.ProjectID, taskID: bucket.TaskID}]
		if !ok {
			continue
		}
		buckets[i] = wipdomain.AdjustBucket(bucket, billed, cfg.AdjustmentToleranceCents)
	}

	return buckets, nil
}

func (s *Service) buildNameIndex(ctx context.Context, db *gorm.DB, entries []timesheetdomain.TimeEntry) (wipdomain.NameIndex, error) {
	names := wipdomain.NameIndex{
		Projects: map[snowflake.ID]string{},
		Tasks:    map[snowflake.ID]string{},
	}

	projects := s.projects.WithTrx(db)
	tasks := s.tasks.WithTrx(db)

	for _, entry := range entries {
		if _, ok := names.Projects[entry.ProjectID]; !ok {
			project, err := projects.FindOne(ctx, &projectdomain.Project{ID: entry.ProjectID})
			if err != nil {
				return wipdomain.NameIndex{}, err
			}
			name := ""
			if project != nil {
				name = project.Name
			}
			names.Projects[entry.ProjectID] = name
		}
		if entry.TaskID == nil {
			continue
		}
		if _, ok := names.Tasks[*entry.TaskID]; !ok {
			task, err := tasks.FindOne(ctx, &projectdomain.Task{ID: *entry.TaskID})
			if err != nil {
				return wipdomain.NameIndex{}, err
			}
			name := ""
			if task != nil {
				name = task.Name
			}
			names.Tasks[*entry.TaskID] = name
		}
	}

	return names, nil
}

func (s *Service) nextNumber(ctx context.Context, db *gorm.DB, now time.Time) (string, error) {
	sequence, err := s.repo.NextSequence(ctx, db)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%d-%05d", now.Year(), sequence), nil
}

type bucketKey struct {
	projectID snowflake.ID
	taskID    snowflake.ID
}

func parseOverrides(overrides []domain.BucketOverride) (map[bucketKey]int64, error) {
	result := make(map[bucketKey]int64, len(overrides))
	for _, override := range overrides {
		projectID, err := snowflake.ParseString(strings.TrimSpace(override.ProjectID))
		if err != nil || projectID == 0 {
			return nil, domain.ErrInvalidProject
		}
		if override.BilledCents < 0 {
			return nil, domain.ValidationErrors{{
				Field:   "overrides",
				Code:    "negative_billed_amount",
				Message: fmt.Sprintf("billed amount %d is negative", override.BilledCents),
			}}
		}
		key := bucketKey{projectID: projectID}
		if value := strings.TrimSpace(override.TaskID); value != "" {
			taskID, err := snowflake.ParseString(value)
			if err != nil || taskID == 0 {
				return nil, domain.ErrInvalidID
			}
			key.taskID = taskID
		}
		result[key] = override.BilledCents
	}
	return result, nil
}

func parseReasons(reasons []domain.ReasonInput) (map[domain.BucketKey]domain.AdjustmentReason, error) {
	result := make(map[domain.BucketKey]domain.AdjustmentReason, len(reasons))
	for _, reason := range reasons {
		projectID, err := snowflake.ParseString(strings.TrimSpace(reason.ProjectID))
		if err != nil || projectID == 0 {
			return nil, domain.ErrInvalidProject
		}
		key := domain.BucketKey{ProjectID: projectID}
		if value := strings.TrimSpace(reason.TaskID); value != "" {
			taskID, err := snowflake.ParseString(value)
			if err != nil || taskID == 0 {
				return nil, domain.ErrInvalidID
			}
			key.TaskID = taskID
		}

		code := wipdomain.ReasonCode(strings.ToUpper(strings.TrimSpace(reason.ReasonCode)))
		if !code.Valid() {
			return nil, domain.ValidationErrors{{
				Field:   "reasons",
				Code:    "invalid_reason_code",
				Message: fmt.Sprintf("unknown reason code %q", reason.ReasonCode),
			}}
		}

		result[key] = domain.AdjustmentReason{
			ReasonCode: code,
			Comments:   strings.TrimSpace(reason.Comments),
		}
	}
	return result, nil
}

func costInputs(costs []domain.CostInput) []domain.CostLineItem {
	result := make([]domain.CostLineItem, 0, len(costs))
	for _, cost := range costs {
		name := strings.TrimSpace(cost.Name)
		if name == "" {
			continue
		}
		result = append(result, domain.CostLineItem{
			Name:            name,
			Quantity:        cost.Quantity,
			RateCents:       cost.RateCents,
			FixedPriceCents: cost.FixedPriceCents,
			Billable:        cost.Billable,
		})
	}
	return result
}

func writeOffRowsToAdjustments(rows []domain.WriteOffEntry) []wipdomain.Adjustment {
	result := make([]wipdomain.Adjustment, 0, len(rows))
	for _, row := range rows {
		result = append(result, wipdomain.Adjustment{
			EntryID:         row.TimeEntryID,
			TaskID:          row.TaskID,
			UserID:          row.UserID,
			Date:            row.Date,
			Description:     row.Description,
			OriginalCents:   row.OriginalCents,
			AdjustmentCents: row.AdjustmentCents,
			ReasonCode:      row.ReasonCode,
			Comments:        row.Comments,
		})
	}
	return result
}

func parseProjectIDs(values []string) ([]snowflake.ID, error) {
	ids := make([]snowflake.ID, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		id, err := snowflake.ParseString(value)
		if err != nil || id == 0 {
			return nil, domain.ErrInvalidProject
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
