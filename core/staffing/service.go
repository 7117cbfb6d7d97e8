package staffing

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/lingora/backend/core"
	"github.com/lingora/backend/core/user"
)

var ErrEntryNotFound = errors.New("hour entry not found")

type (
	Repository interface {
		CreateHourEntry(ctx context.Context, entry HourEntry, exec ...core.DBExecutor) (HourEntry, error)
		GetHourEntryByID(ctx context.Context, id string, exec ...core.DBExecutor) (HourEntry, error)
		// QueryHourEntries applies AND operation on available QueryFilter
		// fields, ordered by date.
		QueryHourEntries(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]HourEntry, error)
		DeleteHourEntriesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error
	}

	Service interface {
		LogHours(ctx context.Context, ne NewHourEntry) (HourEntry, error)
		QueryHours(ctx context.Context, filter QueryFilter) ([]HourEntry, error)
		DeleteHours(ctx context.Context, ids ...string) error
		MonthlySummary(ctx context.Context, staffID string, year int, month time.Month) (EarningsSummary, error)
		AllMonthlySummaries(ctx context.Context, year int, month time.Month) ([]EarningsSummary, error)
		// ExportMonth writes an XLSX workbook of the month's entries and
		// per-staff totals to w.
		ExportMonth(ctx context.Context, year int, month time.Month, w io.Writer) error
	}

	service struct {
		repo    Repository
		userSvc user.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, userSvc user.Service) Service {
	return &service{
		repo:    repo,
		userSvc: userSvc,
	}
}

func (svc *service) LogHours(ctx context.Context, ne NewHourEntry) (HourEntry, error) {
	if _, err := svc.userSvc.GetByID(ctx, ne.StaffID); err != nil {
		return HourEntry{}, err
	}
	entry := HourEntry{
		StaffID:   ne.StaffID,
		Date:      ne.Date.UTC().Truncate(24 * time.Hour),
		Hours:     ne.Hours,
		Kind:      ne.Kind,
		Rate:      ne.Rate,
		Notes:     ne.Notes,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateHourEntry(ctx, entry)
}

func (svc *service) QueryHours(ctx context.Context, filter QueryFilter) ([]HourEntry, error) {
	return svc.repo.QueryHourEntries(ctx, filter)
}

func (svc *service) DeleteHours(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteHourEntriesByID(ctx, ids)
}

func (svc *service) MonthlySummary(ctx context.Context, staffID string, year int, month time.Month) (EarningsSummary, error) {
	entries, err := svc.repo.QueryHourEntries(ctx, QueryFilter{StaffID: staffID, Year: year, Month: month})
	if err != nil {
		return EarningsSummary{}, err
	}
	summary := summarize(staffID, year, month, entries)
	if usr, err := svc.userSvc.GetByID(ctx, staffID); err == nil {
		summary.StaffName = usr.Name
	}
	return summary, nil
}

func (svc *service) AllMonthlySummaries(ctx context.Context, year int, month time.Month) ([]EarningsSummary, error) {
	entries, err := svc.repo.QueryHourEntries(ctx, QueryFilter{Year: year, Month: month})
	if err != nil {
		return nil, err
	}

	byStaff := make(map[string][]HourEntry)
	for _, e := range entries {
		byStaff[e.StaffID] = append(byStaff[e.StaffID], e)
	}

	summaries := make([]EarningsSummary, 0, len(byStaff))
	for staffID, staffEntries := range byStaff {
		summary := summarize(staffID, year, month, staffEntries)
		if usr, err := svc.userSvc.GetByID(ctx, staffID); err == nil {
			summary.StaffName = usr.Name
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].StaffName < summaries[j].StaffName })
	return summaries, nil
}

func (svc *service) ExportMonth(ctx context.Context, year int, month time.Month, w io.Writer) error {
	entries, err := svc.repo.QueryHourEntries(ctx, QueryFilter{Year: year, Month: month})
	if err != nil {
		return err
	}
	summaries, err := svc.AllMonthlySummaries(ctx, year, month)
	if err != nil {
		return err
	}

	names := make(map[string]string, len(summaries))
	for _, s := range summaries {
		names[s.StaffID] = s.StaffName
	}

	f := excelize.NewFile()
	entriesSheet := "Hours"
	_ = f.SetSheetName("Sheet1", entriesSheet)

	header := []string{"Date", "Staff", "Kind", "Hours", "Rate", "Amount", "Notes"}
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(entriesSheet, cell, h)
	}
	for row, e := range entries {
		name := names[e.StaffID]
		if name == "" {
			name = e.StaffID
		}
		values := []interface{}{
			e.Date.Format("2006-01-02"), name, e.Kind, e.Hours, e.Rate, e.Amount(), e.Notes,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(entriesSheet, cell, v)
		}
	}

	summarySheet := "Summary"
	if _, err = f.NewSheet(summarySheet); err != nil {
		return errors.Wrap(err, "creating summary sheet")
	}
	_ = f.SetCellValue(summarySheet, "A1", fmt.Sprintf("Earnings %s %d", month, year))
	summaryHeader := []string{"Staff", "Total Hours", "Total Owed"}
	for i, h := range summaryHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(summarySheet, cell, h)
	}
	for row, s := range summaries {
		name := s.StaffName
		if name == "" {
			name = s.StaffID
		}
		values := []interface{}{name, s.TotalHours, s.TotalOwed}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+3)
			_ = f.SetCellValue(summarySheet, cell, v)
		}
	}

	return errors.Wrap(f.Write(w), "writing workbook")
}

func summarize(staffID string, year int, month time.Month, entries []HourEntry) EarningsSummary {
	summary := EarningsSummary{StaffID: staffID, Year: year, Month: month}

	byKind := make(map[string]*KindSummary, len(EntryKinds))
	for _, e := range entries {
		ks, ok := byKind[e.Kind]
		if !ok {
			ks = &KindSummary{Kind: e.Kind}
			byKind[e.Kind] = ks
		}
		ks.Hours += e.Hours
		ks.Amount += e.Amount()
		summary.TotalHours += e.Hours
		summary.TotalOwed += e.Amount()
	}
	for _, kind := range EntryKinds {
		if ks, ok := byKind[kind]; ok {
			summary.Kinds = append(summary.Kinds, *ks)
		}
	}
	return summary
}
