package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/lingora/backend/core"
	"github.com/lingora/backend/core/curriculum"
)

type weekRow struct {
	ID          string      `db:"id"`
	WeekNumber  int         `db:"week_number"`
	Level       string      `db:"level"`
	Title       string      `db:"title"`
	Description null.String `db:"description"`
	CreatedAt   time.Time   `db:"created_at"`
}

type topicRow struct {
	ID          string      `db:"id"`
	WeekID      string      `db:"week_id"`
	Name        string      `db:"name"`
	Description null.String `db:"description"`
	OrderNumber int         `db:"order_number"`
}

type topicProgressRow struct {
	ID        string      `db:"id"`
	StudentID string      `db:"student_id"`
	TopicID   string      `db:"topic_id"`
	Status    string      `db:"status"`
	Color     null.String `db:"color"`
	UpdatedAt time.Time   `db:"updated_at"`
}

type weekProgressRow struct {
	ID          string `db:"id"`
	StudentID   string `db:"student_id"`
	WeekNumber  int    `db:"week_number"`
	IsCompleted bool   `db:"is_completed"`
}

type curriculumRepository struct {
	db *sqlx.DB
}

var _ curriculum.Repository = (*curriculumRepository)(nil) // interface compliance check

func NewCurriculumRepository(db *sqlx.DB) curriculum.Repository {
	return &curriculumRepository{db: db}
}

func (repo *curriculumRepository) CheckWeekUniqueness(ctx context.Context, level string, weekNumber int, exec ...core.DBExecutor) error {
	query := `SELECT COUNT(*) FROM program_week WHERE level = $1 AND week_number = $2`

	var count int
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &count, query, level, weekNumber); err != nil {
		return errors.Wrap(err, "checking week uniqueness")
	}
	if count > 0 {
		return curriculum.ErrWeekExists
	}
	return nil
}

func (repo *curriculumRepository) CreateWeek(ctx context.Context, week curriculum.ProgramWeek, exec ...core.DBExecutor) error {
	if week.ID == "" {
		week.ID = newPK()
	}
	query := `
		INSERT INTO program_week (id, week_number, level, title, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := ext(repo.db, exec).ExecContext(ctx, query,
		week.ID, week.WeekNumber, week.Level, week.Title, week.Description, week.CreatedAt,
	)
	return errors.Wrap(err, "creating week")
}

func (repo *curriculumRepository) GetWeekByID(ctx context.Context, id string, exec ...core.DBExecutor) (curriculum.ProgramWeek, error) {
	query := `SELECT id, week_number, level, title, description, created_at FROM program_week WHERE id = $1`

	var row weekRow
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return curriculum.ProgramWeek{}, curriculum.ErrWeekNotFound
		}
		return curriculum.ProgramWeek{}, errors.Wrap(err, "getting week")
	}
	return curriculum.ProgramWeek(row), nil
}

func (repo *curriculumRepository) QueryWeeksByLevel(ctx context.Context, level string, exec ...core.DBExecutor) ([]curriculum.ProgramWeek, error) {
	query := `
		SELECT id, week_number, level, title, description, created_at
		FROM program_week
		WHERE level = $1
		ORDER BY week_number`

	var rows []weekRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, query, level); err != nil {
		return nil, errors.Wrap(err, "querying weeks")
	}
	return toWeeks(rows), nil
}

func (repo *curriculumRepository) QueryAllWeeks(ctx context.Context, exec ...core.DBExecutor) ([]curriculum.ProgramWeek, error) {
	query := `
		SELECT id, week_number, level, title, description, created_at
		FROM program_week
		ORDER BY level, week_number`

	var rows []weekRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying weeks")
	}
	return toWeeks(rows), nil
}

func (repo *curriculumRepository) UpdateWeek(ctx context.Context, week curriculum.ProgramWeek, exec ...core.DBExecutor) error {
	query := `
		UPDATE program_week
		SET week_number = $2, level = $3, title = $4, description = $5
		WHERE id = $1`
	res, err := ext(repo.db, exec).ExecContext(ctx, query,
		week.ID, week.WeekNumber, week.Level, week.Title, week.Description,
	)
	if err != nil {
		return errors.Wrap(err, "updating week")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return curriculum.ErrWeekNotFound
	}
	return nil
}

func (repo *curriculumRepository) DeleteWeeksByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int64, error) {
	res, err := ext(repo.db, exec).ExecContext(ctx, `DELETE FROM program_week WHERE id = ANY($1)`, pq.StringArray(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting weeks")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (repo *curriculumRepository) CreateTopic(ctx context.Context, topic curriculum.WeekTopic, exec ...core.DBExecutor) error {
	if topic.ID == "" {
		topic.ID = newPK()
	}
	query := `
		INSERT INTO week_topic (id, week_id, name, description, order_number)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := ext(repo.db, exec).ExecContext(ctx, query,
		topic.ID, topic.WeekID, topic.Name, topic.Description, topic.OrderNumber,
	)
	return errors.Wrap(err, "creating topic")
}

func (repo *curriculumRepository) GetTopicByID(ctx context.Context, id string, exec ...core.DBExecutor) (curriculum.WeekTopic, error) {
	query := `SELECT id, week_id, name, description, order_number FROM week_topic WHERE id = $1`

	var row topicRow
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return curriculum.WeekTopic{}, curriculum.ErrTopicNotFound
		}
		return curriculum.WeekTopic{}, errors.Wrap(err, "getting topic")
	}
	return curriculum.WeekTopic(row), nil
}

func (repo *curriculumRepository) QueryTopicsByWeek(ctx context.Context, weekID string, exec ...core.DBExecutor) ([]curriculum.WeekTopic, error) {
	query := `
		SELECT id, week_id, name, description, order_number
		FROM week_topic
		WHERE week_id = $1
		ORDER BY order_number`

	var rows []topicRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, query, weekID); err != nil {
		return nil, errors.Wrap(err, "querying topics")
	}
	topics := make([]curriculum.WeekTopic, 0, len(rows))
	for _, row := range rows {
		topics = append(topics, curriculum.WeekTopic(row))
	}
	return topics, nil
}

func (repo *curriculumRepository) DeleteTopicsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int64, error) {
	res, err := ext(repo.db, exec).ExecContext(ctx, `DELETE FROM week_topic WHERE id = ANY($1)`, pq.StringArray(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting topics")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (repo *curriculumRepository) GetTopicProgress(ctx context.Context, studentID, topicID string, exec ...core.DBExecutor) (curriculum.TopicProgress, error) {
	query := `
		SELECT id, student_id, topic_id, status, color, updated_at
		FROM student_topic_progress
		WHERE student_id = $1 AND topic_id = $2`

	var row topicProgressRow
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, query, studentID, topicID); err != nil {
		if err == sql.ErrNoRows {
			return curriculum.TopicProgress{}, curriculum.ErrProgressNotFound
		}
		return curriculum.TopicProgress{}, errors.Wrap(err, "getting topic progress")
	}
	return curriculum.TopicProgress(row), nil
}

func (repo *curriculumRepository) UpsertTopicProgress(ctx context.Context, progress curriculum.TopicProgress, exec ...core.DBExecutor) (curriculum.TopicProgress, error) {
	if progress.ID == "" {
		progress.ID = newPK()
	}
	query := `
		INSERT INTO student_topic_progress (id, student_id, topic_id, status, color, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (student_id, topic_id)
		DO UPDATE SET status = EXCLUDED.status, color = EXCLUDED.color, updated_at = EXCLUDED.updated_at`
	_, err := ext(repo.db, exec).ExecContext(ctx, query,
		progress.ID, progress.StudentID, progress.TopicID, progress.Status, progress.Color, progress.UpdatedAt,
	)
	if err != nil {
		return curriculum.TopicProgress{}, errors.Wrap(err, "upserting topic progress")
	}
	return repo.GetTopicProgress(ctx, progress.StudentID, progress.TopicID, exec...)
}

func (repo *curriculumRepository) QueryTopicProgressByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]curriculum.TopicProgress, error) {
	query := `
		SELECT id, student_id, topic_id, status, color, updated_at
		FROM student_topic_progress
		WHERE student_id = $1`

	var rows []topicProgressRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, query, studentID); err != nil {
		return nil, errors.Wrap(err, "querying topic progress")
	}
	progress := make([]curriculum.TopicProgress, 0, len(rows))
	for _, row := range rows {
		progress = append(progress, curriculum.TopicProgress(row))
	}
	return progress, nil
}

func (repo *curriculumRepository) QueryWeekProgress(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]curriculum.WeekProgress, error) {
	query := `
		SELECT id, student_id, week_number, is_completed
		FROM student_week_progress
		WHERE student_id = $1
		ORDER BY week_number`

	var rows []weekProgressRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, query, studentID); err != nil {
		return nil, errors.Wrap(err, "querying week progress")
	}
	progress := make([]curriculum.WeekProgress, 0, len(rows))
	for _, row := range rows {
		progress = append(progress, curriculum.WeekProgress(row))
	}
	return progress, nil
}

func (repo *curriculumRepository) SetWeekCompleted(ctx context.Context, studentID string, weekNumber int, isCompleted bool, exec ...core.DBExecutor) (curriculum.WeekProgress, error) {
	progress := curriculum.WeekProgress{
		ID:          newPK(),
		StudentID:   studentID,
		WeekNumber:  weekNumber,
		IsCompleted: isCompleted,
	}
	query := `
		INSERT INTO student_week_progress (id, student_id, week_number, is_completed)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id, week_number)
		DO UPDATE SET is_completed = EXCLUDED.is_completed`
	if _, err := ext(repo.db, exec).ExecContext(ctx, query,
		progress.ID, progress.StudentID, progress.WeekNumber, progress.IsCompleted,
	); err != nil {
		return curriculum.WeekProgress{}, errors.Wrap(err, "setting week completed")
	}

	var row weekProgressRow
	getQuery := `SELECT id, student_id, week_number, is_completed FROM student_week_progress WHERE student_id = $1 AND week_number = $2`
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, getQuery, studentID, weekNumber); err != nil {
		return curriculum.WeekProgress{}, errors.Wrap(err, "getting week progress")
	}
	return curriculum.WeekProgress(row), nil
}

func (repo *curriculumRepository) AddPoints(ctx context.Context, studentID string, points int, exec ...core.DBExecutor) error {
	query := `
		INSERT INTO student_points (student_id, points)
		VALUES ($1, $2)
		ON CONFLICT (student_id)
		DO UPDATE SET points = student_points.points + EXCLUDED.points`
	_, err := ext(repo.db, exec).ExecContext(ctx, query, studentID, points)
	return errors.Wrap(err, "adding points")
}

func (repo *curriculumRepository) GetPoints(ctx context.Context, studentID string, exec ...core.DBExecutor) (int, error) {
	query := `SELECT COALESCE((SELECT points FROM student_points WHERE student_id = $1), 0)`

	var points int
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &points, query, studentID); err != nil {
		return 0, errors.Wrap(err, "getting points")
	}
	return points, nil
}

func toWeeks(rows []weekRow) []curriculum.ProgramWeek {
	weeks := make([]curriculum.ProgramWeek, 0, len(rows))
	for _, row := range rows {
		weeks = append(weeks, curriculum.ProgramWeek(row))
	}
	return weeks
}
