package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/lingora/backend/core"
	"github.com/lingora/backend/core/staffing"
)

type hourEntryRow struct {
	ID        string    `db:"id"`
	StaffID   string    `db:"staff_id"`
	Date      time.Time `db:"date"`
	Hours     float64   `db:"hours"`
	Kind      string    `db:"kind"`
	Rate      float64   `db:"rate"`
	Notes     string    `db:"notes"`
	CreatedAt time.Time `db:"created_at"`
}

type staffingRepository struct {
	db *sqlx.DB
}

var _ staffing.Repository = (*staffingRepository)(nil) // interface compliance check

func NewStaffingRepository(db *sqlx.DB) staffing.Repository {
	return &staffingRepository{db: db}
}

func (repo *staffingRepository) CreateHourEntry(ctx context.Context, entry staffing.HourEntry, exec ...core.DBExecutor) (staffing.HourEntry, error) {
	entry.ID = newPK()
	query := `
		INSERT INTO hour_entry (id, staff_id, date, hours, kind, rate, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := ext(repo.db, exec).ExecContext(ctx, query,
		entry.ID, entry.StaffID, entry.Date, entry.Hours, entry.Kind, entry.Rate, entry.Notes, entry.CreatedAt,
	)
	if err != nil {
		return staffing.HourEntry{}, errors.Wrap(err, "creating hour entry")
	}
	return entry, nil
}

func (repo *staffingRepository) GetHourEntryByID(ctx context.Context, id string, exec ...core.DBExecutor) (staffing.HourEntry, error) {
	query := `SELECT id, staff_id, date, hours, kind, rate, notes, created_at FROM hour_entry WHERE id = $1`

	var row hourEntryRow
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return staffing.HourEntry{}, staffing.ErrEntryNotFound
		}
		return staffing.HourEntry{}, errors.Wrap(err, "getting hour entry")
	}
	return staffing.HourEntry(row), nil
}

func (repo *staffingRepository) QueryHourEntries(ctx context.Context, filter staffing.QueryFilter, exec ...core.DBExecutor) ([]staffing.HourEntry, error) {
	query := `SELECT id, staff_id, date, hours, kind, rate, notes, created_at FROM hour_entry`
	var clauses []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.StaffID != "" {
		clauses = append(clauses, fmt.Sprintf("staff_id = %s", arg(filter.StaffID)))
	}
	if filter.Year != 0 {
		clauses = append(clauses, fmt.Sprintf("EXTRACT(YEAR FROM date) = %s", arg(filter.Year)))
	}
	if filter.Month != 0 {
		clauses = append(clauses, fmt.Sprintf("EXTRACT(MONTH FROM date) = %s", arg(int(filter.Month))))
	}
	if filter.Kind != "" {
		clauses = append(clauses, fmt.Sprintf("kind = %s", arg(filter.Kind)))
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY date, created_at"

	var rows []hourEntryRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying hour entries")
	}
	entries := make([]staffing.HourEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, staffing.HourEntry(row))
	}
	return entries, nil
}

func (repo *staffingRepository) DeleteHourEntriesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	_, err := ext(repo.db, exec).ExecContext(ctx, `DELETE FROM hour_entry WHERE id = ANY($1)`, pq.StringArray(ids))
	return errors.Wrap(err, "deleting hour entries")
}
