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
	"github.com/volatiletech/null/v8"

	"github.com/lingora/backend/core"
	"github.com/lingora/backend/core/schedule"
)

type availabilityRow struct {
	ID        string    `db:"id"`
	OwnerID   string    `db:"owner_id"`
	Day       int       `db:"day_of_week"`
	StartTime string    `db:"start_time"`
	EndTime   string    `db:"end_time"`
	CreatedAt time.Time `db:"created_at"`
}

type eventRow struct {
	ID         string      `db:"id"`
	Day        int         `db:"day_of_week"`
	StartTime  string      `db:"start_time"`
	EndTime    string      `db:"end_time"`
	Type       string      `db:"event_type"`
	Title      string      `db:"title"`
	Level      null.String `db:"level"`
	Room       null.String `db:"room"`
	Teacher1ID null.String `db:"teacher1_id"`
	Teacher2ID null.String `db:"teacher2_id"`
	Tutor1ID   null.String `db:"tutor1_id"`
	Tutor2ID   null.String `db:"tutor2_id"`
	Details    null.String `db:"details"`
	Attachment null.String `db:"attachment"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func (row eventRow) toEvent() schedule.Event {
	return schedule.Event(row)
}

const eventColumns = `id, day_of_week, start_time, end_time, event_type, title, level, room,
	teacher1_id, teacher2_id, tutor1_id, tutor2_id, details, attachment, created_at, updated_at`

type scheduleRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *sqlx.DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) GetAvailability(ctx context.Context, ownerID string, exec ...core.DBExecutor) ([]schedule.AvailabilityRange, error) {
	query := `
		SELECT id, owner_id, day_of_week, start_time, end_time, created_at
		FROM availability_range
		WHERE owner_id = $1
		ORDER BY day_of_week, start_time`

	var rows []availabilityRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, query, ownerID); err != nil {
		return nil, errors.Wrap(err, "querying availability")
	}
	ranges := make([]schedule.AvailabilityRange, 0, len(rows))
	for _, row := range rows {
		ranges = append(ranges, schedule.AvailabilityRange(row))
	}
	return ranges, nil
}

func (repo *scheduleRepository) DeleteAvailability(ctx context.Context, ownerID string, exec ...core.DBExecutor) error {
	_, err := ext(repo.db, exec).ExecContext(ctx, `DELETE FROM availability_range WHERE owner_id = $1`, ownerID)
	return errors.Wrap(err, "deleting availability")
}

func (repo *scheduleRepository) CreateAvailability(ctx context.Context, ownerID string, ranges []schedule.TimeRange, exec ...core.DBExecutor) ([]schedule.AvailabilityRange, error) {
	e := ext(repo.db, exec)
	now := time.Now().UTC()

	query := `
		INSERT INTO availability_range (id, owner_id, day_of_week, start_time, end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	out := make([]schedule.AvailabilityRange, 0, len(ranges))
	for _, r := range ranges {
		row := schedule.AvailabilityRange{
			ID:        newPK(),
			OwnerID:   ownerID,
			Day:       r.Day,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			CreatedAt: now,
		}
		if _, err := e.ExecContext(ctx, query, row.ID, row.OwnerID, row.Day, row.StartTime, row.EndTime, row.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "creating availability")
		}
		out = append(out, row)
	}
	return out, nil
}

func (repo *scheduleRepository) CreateEvent(ctx context.Context, ev schedule.Event, exec ...core.DBExecutor) (schedule.Event, error) {
	ev.ID = newPK()
	query := `
		INSERT INTO event (id, day_of_week, start_time, end_time, event_type, title, level, room,
			teacher1_id, teacher2_id, tutor1_id, tutor2_id, details, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := ext(repo.db, exec).ExecContext(ctx, query,
		ev.ID, ev.Day, ev.StartTime, ev.EndTime, ev.Type, ev.Title, ev.Level, ev.Room,
		ev.Teacher1ID, ev.Teacher2ID, ev.Tutor1ID, ev.Tutor2ID, ev.Details, ev.CreatedAt, ev.UpdatedAt,
	)
	if err != nil {
		return schedule.Event{}, errors.Wrap(err, "creating event")
	}
	return ev, nil
}

func (repo *scheduleRepository) GetEventByID(ctx context.Context, id string, exec ...core.DBExecutor) (schedule.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM event WHERE id = $1`, eventColumns)

	var row eventRow
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return schedule.Event{}, schedule.ErrEventNotFound
		}
		return schedule.Event{}, errors.Wrap(err, "getting event")
	}
	return row.toEvent(), nil
}

func (repo *scheduleRepository) FilterEvents(ctx context.Context, filter schedule.EventFilter, exec ...core.DBExecutor) ([]schedule.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM event`, eventColumns)
	var clauses []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Day != nil {
		clauses = append(clauses, fmt.Sprintf("day_of_week = %s", arg(*filter.Day)))
	}
	if filter.Type != "" {
		clauses = append(clauses, fmt.Sprintf("event_type = %s", arg(filter.Type)))
	}
	if filter.Level != "" {
		clauses = append(clauses, fmt.Sprintf("level = %s", arg(filter.Level)))
	}
	if filter.Room != "" {
		clauses = append(clauses, fmt.Sprintf("room = %s", arg(filter.Room)))
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY day_of_week, start_time"

	var rows []eventRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering events")
	}
	events := make([]schedule.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toEvent())
	}
	return events, nil
}

func (repo *scheduleRepository) UpdateEvent(ctx context.Context, ev schedule.Event, exec ...core.DBExecutor) (schedule.Event, error) {
	query := `
		UPDATE event
		SET day_of_week = $2, start_time = $3, end_time = $4, event_type = $5, title = $6, level = $7, room = $8,
			teacher1_id = $9, teacher2_id = $10, tutor1_id = $11, tutor2_id = $12, details = $13, updated_at = $14
		WHERE id = $1`
	res, err := ext(repo.db, exec).ExecContext(ctx, query,
		ev.ID, ev.Day, ev.StartTime, ev.EndTime, ev.Type, ev.Title, ev.Level, ev.Room,
		ev.Teacher1ID, ev.Teacher2ID, ev.Tutor1ID, ev.Tutor2ID, ev.Details, ev.UpdatedAt,
	)
	if err != nil {
		return schedule.Event{}, errors.Wrap(err, "updating event")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return schedule.Event{}, schedule.ErrEventNotFound
	}
	return repo.GetEventByID(ctx, ev.ID, exec...)
}

func (repo *scheduleRepository) DeleteEventsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	_, err := ext(repo.db, exec).ExecContext(ctx, `DELETE FROM event WHERE id = ANY($1)`, pq.StringArray(ids))
	return errors.Wrap(err, "deleting events")
}

func (repo *scheduleRepository) SetEventAttachment(ctx context.Context, id, objectPath string, exec ...core.DBExecutor) (schedule.Event, error) {
	query := `UPDATE event SET attachment = $2, updated_at = $3 WHERE id = $1`
	res, err := ext(repo.db, exec).ExecContext(ctx, query, id, objectPath, time.Now().UTC())
	if err != nil {
		return schedule.Event{}, errors.Wrap(err, "setting attachment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return schedule.Event{}, schedule.ErrEventNotFound
	}
	return repo.GetEventByID(ctx, id, exec...)
}

func (repo *scheduleRepository) CreateAssignment(ctx context.Context, asg schedule.Assignment, exec ...core.DBExecutor) (schedule.Assignment, error) {
	asg.ID = newPK()
	query := `
		INSERT INTO event_assignment (id, student_id, event_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := ext(repo.db, exec).ExecContext(ctx, query,
		asg.ID, asg.StudentID, asg.EventID, asg.IsActive, asg.CreatedAt, asg.UpdatedAt,
	)
	if err != nil {
		return schedule.Assignment{}, errors.Wrap(err, "creating assignment")
	}
	return asg, nil
}

func (repo *scheduleRepository) GetAssignmentByID(ctx context.Context, id string, exec ...core.DBExecutor) (schedule.Assignment, error) {
	query := `SELECT id, student_id, event_id, is_active, created_at, updated_at FROM event_assignment WHERE id = $1`

	var asg assignmentRow
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &asg, query, id); err != nil {
		if err == sql.ErrNoRows {
			return schedule.Assignment{}, schedule.ErrAssignmentNotFound
		}
		return schedule.Assignment{}, errors.Wrap(err, "getting assignment")
	}
	return schedule.Assignment(asg), nil
}

type assignmentRow struct {
	ID        string    `db:"id"`
	StudentID string    `db:"student_id"`
	EventID   string    `db:"event_id"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (repo *scheduleRepository) FilterAssignments(ctx context.Context, filter schedule.AssignmentFilter, exec ...core.DBExecutor) ([]schedule.Assignment, error) {
	query := `SELECT id, student_id, event_id, is_active, created_at, updated_at FROM event_assignment`
	var clauses []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.StudentID != "" {
		clauses = append(clauses, fmt.Sprintf("student_id = %s", arg(filter.StudentID)))
	}
	if filter.EventID != "" {
		clauses = append(clauses, fmt.Sprintf("event_id = %s", arg(filter.EventID)))
	}
	if filter.ActiveOnly {
		clauses = append(clauses, "is_active")
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at"

	var rows []assignmentRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering assignments")
	}
	assignments := make([]schedule.Assignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, schedule.Assignment(row))
	}
	return assignments, nil
}

func (repo *scheduleRepository) SetAssignmentActive(ctx context.Context, id string, isActive bool, exec ...core.DBExecutor) (schedule.Assignment, error) {
	query := `UPDATE event_assignment SET is_active = $2, updated_at = $3 WHERE id = $1`
	res, err := ext(repo.db, exec).ExecContext(ctx, query, id, isActive, time.Now().UTC())
	if err != nil {
		return schedule.Assignment{}, errors.Wrap(err, "setting assignment active")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return schedule.Assignment{}, schedule.ErrAssignmentNotFound
	}
	return repo.GetAssignmentByID(ctx, id, exec...)
}
