package dummydb

import (
	"context"
	"sort"

	"github.com/lingora/backend/core"
	"github.com/lingora/backend/core/staffing"
)

type staffingRepository struct {
	db *staffingTable
}

var _ staffing.Repository = (*staffingRepository)(nil) // interface compliance check

func NewStaffingRepository(db *DB) staffing.Repository {
	return &staffingRepository{db: db.staffing}
}

func (repo *staffingRepository) CreateHourEntry(ctx context.Context, entry staffing.HourEntry, exec ...core.DBExecutor) (staffing.HourEntry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	entry.ID = newPK()
	repo.db.table[entry.ID] = &entry
	return entry, nil
}

func (repo *staffingRepository) GetHourEntryByID(ctx context.Context, id string, exec ...core.DBExecutor) (staffing.HourEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if e, ok := repo.db.table[id]; ok {
		return *e, nil
	}
	return staffing.HourEntry{}, staffing.ErrEntryNotFound
}

func (repo *staffingRepository) QueryHourEntries(ctx context.Context, filter staffing.QueryFilter, exec ...core.DBExecutor) ([]staffing.HourEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var entries []staffing.HourEntry
	for _, e := range repo.db.table {
		if filter.StaffID != "" && e.StaffID != filter.StaffID {
			continue
		}
		if filter.Year != 0 && e.Date.Year() != filter.Year {
			continue
		}
		if filter.Month != 0 && e.Date.Month() != filter.Month {
			continue
		}
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
	return entries, nil
}

func (repo *staffingRepository) DeleteHourEntriesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
