package curriculum

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/lingora/backend/core"
)

var (
	ErrWeekNotFound     = errors.New("week not found")
	ErrTopicNotFound    = errors.New("topic not found")
	ErrProgressNotFound = errors.New("topic progress not found")
	ErrWeekExists       = errors.New("week number already exists for this level")
)

// weekCacheTTL bounds staleness of the per-level week listing; writes
// invalidate eagerly so the TTL only matters across processes.
const weekCacheTTL = 10 * time.Minute

type Repository interface {
	CheckWeekUniqueness(ctx context.Context, level string, weekNumber int, tx ...core.DBExecutor) error
	CreateWeek(ctx context.Context, week ProgramWeek, tx ...core.DBExecutor) error
	GetWeekByID(ctx context.Context, id string, tx ...core.DBExecutor) (ProgramWeek, error)
	QueryWeeksByLevel(ctx context.Context, level string, tx ...core.DBExecutor) ([]ProgramWeek, error)
	QueryAllWeeks(ctx context.Context, tx ...core.DBExecutor) ([]ProgramWeek, error)
	UpdateWeek(ctx context.Context, week ProgramWeek, tx ...core.DBExecutor) error
	DeleteWeeksByID(ctx context.Context, ids []string, tx ...core.DBExecutor) (int64, error)

	CreateTopic(ctx context.Context, topic WeekTopic, tx ...core.DBExecutor) error
	GetTopicByID(ctx context.Context, id string, tx ...core.DBExecutor) (WeekTopic, error)
	QueryTopicsByWeek(ctx context.Context, weekID string, tx ...core.DBExecutor) ([]WeekTopic, error)
	DeleteTopicsByID(ctx context.Context, ids []string, tx ...core.DBExecutor) (int64, error)

	GetTopicProgress(ctx context.Context, studentID, topicID string, tx ...core.DBExecutor) (TopicProgress, error)
	UpsertTopicProgress(ctx context.Context, progress TopicProgress, tx ...core.DBExecutor) (TopicProgress, error)
	QueryTopicProgressByStudent(ctx context.Context, studentID string, tx ...core.DBExecutor) ([]TopicProgress, error)

	QueryWeekProgress(ctx context.Context, studentID string, tx ...core.DBExecutor) ([]WeekProgress, error)
	SetWeekCompleted(ctx context.Context, studentID string, weekNumber int, isCompleted bool, tx ...core.DBExecutor) (WeekProgress, error)

	AddPoints(ctx context.Context, studentID string, points int, tx ...core.DBExecutor) error
	GetPoints(ctx context.Context, studentID string, tx ...core.DBExecutor) (int, error)
}

type Service interface {
	CreateWeek(ctx context.Context, nw NewWeek, now time.Time) (ProgramWeek, error)
	GetWeek(ctx context.Context, id string) (ProgramWeek, error)
	QueryWeeks(ctx context.Context, level string) ([]ProgramWeek, error)
	QueryAllWeeks(ctx context.Context) ([]ProgramWeek, error)
	UpdateWeek(ctx context.Context, id string, uw UpdateWeek) (ProgramWeek, error)
	DeleteWeeks(ctx context.Context, ids []string) error

	CreateTopic(ctx context.Context, nt NewTopic) (WeekTopic, error)
	QueryTopics(ctx context.Context, weekID string) ([]WeekTopic, error)
	DeleteTopics(ctx context.Context, ids []string) error

	StudentOverview(ctx context.Context, studentID, level string) (Overview, error)
	SetTopicStatus(ctx context.Context, st SetTopicStatus, now time.Time) (TopicProgress, error)
	SetTopicColor(ctx context.Context, sc SetTopicColor, now time.Time) (TopicProgress, error)
	CompleteWeek(ctx context.Context, studentID string, weekNumber int, isCompleted bool) (WeekProgress, error)
	Points(ctx context.Context, studentID string) (int, error)
}

type service struct {
	db    core.DB
	repo  Repository
	cache *cache.Cache
}

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository) Service {
	return &service{
		db:    db,
		repo:  repo,
		cache: cache.New(weekCacheTTL, 2*weekCacheTTL),
	}
}

func weekCacheKey(level string) string { return "weeks:" + level }

func (s service) CreateWeek(ctx context.Context, nw NewWeek, now time.Time) (ProgramWeek, error) {
	if err := s.repo.CheckWeekUniqueness(ctx, nw.Level, nw.WeekNumber); err != nil {
		return ProgramWeek{}, err
	}
	week := ProgramWeek{
		ID:          uuid.New().String(),
		WeekNumber:  nw.WeekNumber,
		Level:       nw.Level,
		Title:       nw.Title,
		Description: core.NullableString(nw.Description),
		CreatedAt:   now.UTC(),
	}
	if err := s.repo.CreateWeek(ctx, week); err != nil {
		return ProgramWeek{}, errors.Wrap(err, "creating week")
	}
	s.cache.Delete(weekCacheKey(nw.Level))
	return week, nil
}

func (s service) GetWeek(ctx context.Context, id string) (ProgramWeek, error) {
	return s.repo.GetWeekByID(ctx, id)
}

func (s service) QueryWeeks(ctx context.Context, level string) ([]ProgramWeek, error) {
	key := weekCacheKey(level)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]ProgramWeek), nil
	}
	weeks, err := s.repo.QueryWeeksByLevel(ctx, level)
	if err != nil {
		return nil, errors.Wrap(err, "querying weeks")
	}
	s.cache.SetDefault(key, weeks)
	return weeks, nil
}

func (s service) QueryAllWeeks(ctx context.Context) ([]ProgramWeek, error) {
	return s.repo.QueryAllWeeks(ctx)
}

func (s service) UpdateWeek(ctx context.Context, id string, uw UpdateWeek) (ProgramWeek, error) {
	week, err := s.repo.GetWeekByID(ctx, id)
	if err != nil {
		return ProgramWeek{}, err
	}
	if *uw.WeekNumber != week.WeekNumber || uw.Level != week.Level {
		if err := s.repo.CheckWeekUniqueness(ctx, uw.Level, *uw.WeekNumber); err != nil {
			return ProgramWeek{}, err
		}
	}
	prevLevel := week.Level
	week.WeekNumber = *uw.WeekNumber
	week.Level = uw.Level
	week.Title = uw.Title
	if uw.Description != "" {
		week.Description = core.NullableString(uw.Description)
	}
	if err := s.repo.UpdateWeek(ctx, week); err != nil {
		return ProgramWeek{}, errors.Wrap(err, "updating week")
	}
	s.cache.Delete(weekCacheKey(prevLevel))
	s.cache.Delete(weekCacheKey(week.Level))
	return week, nil
}

func (s service) DeleteWeeks(ctx context.Context, ids []string) error {
	if _, err := s.repo.DeleteWeeksByID(ctx, ids); err != nil {
		return errors.Wrap(err, "deleting weeks")
	}
	s.cache.Flush()
	return nil
}

func (s service) CreateTopic(ctx context.Context, nt NewTopic) (WeekTopic, error) {
	if _, err := s.repo.GetWeekByID(ctx, nt.WeekID); err != nil {
		return WeekTopic{}, err
	}
	topic := WeekTopic{
		ID:          uuid.New().String(),
		WeekID:      nt.WeekID,
		Name:        nt.Name,
		Description: core.NullableString(nt.Description),
		OrderNumber: nt.OrderNumber,
	}
	if err := s.repo.CreateTopic(ctx, topic); err != nil {
		return WeekTopic{}, errors.Wrap(err, "creating topic")
	}
	return topic, nil
}

func (s service) QueryTopics(ctx context.Context, weekID string) ([]WeekTopic, error) {
	return s.repo.QueryTopicsByWeek(ctx, weekID)
}

func (s service) DeleteTopics(ctx context.Context, ids []string) error {
	_, err := s.repo.DeleteTopicsByID(ctx, ids)
	return errors.Wrap(err, "deleting topics")
}

// StudentOverview assembles the student's unlock state: sequential weeks with
// their three-state status, the reinforcement section, topics and points.
func (s service) StudentOverview(ctx context.Context, studentID, level string) (Overview, error) {
	ov := Overview{Level: level, Weeks: []WeekOverview{}, Reinforcement: []ReinforcementOverview{}}

	points, err := s.repo.GetPoints(ctx, studentID)
	if err != nil {
		return Overview{}, errors.Wrap(err, "getting points")
	}
	ov.Points = points

	if level == "" {
		return ov, nil
	}

	weeks, err := s.QueryWeeks(ctx, level)
	if err != nil {
		return Overview{}, err
	}
	progress, err := s.repo.QueryWeekProgress(ctx, studentID)
	if err != nil {
		return Overview{}, errors.Wrap(err, "querying week progress")
	}
	completed := make(WeekSet, len(progress))
	for _, p := range progress {
		if p.IsCompleted {
			completed[p.WeekNumber] = struct{}{}
		}
	}

	regular, reinforcement := SplitReinforcement(weeks)
	ov.CurrentWeek = CurrentWeek(level, regular, completed)

	for _, w := range regular {
		topics, err := s.repo.QueryTopicsByWeek(ctx, w.ID)
		if err != nil {
			return Overview{}, errors.Wrap(err, "querying topics")
		}
		ov.Weeks = append(ov.Weeks, WeekOverview{
			Week:   w,
			Status: StatusOf(w.WeekNumber, ov.CurrentWeek, completed),
			Topics: topics,
		})
	}
	for _, w := range reinforcement {
		topics, err := s.repo.QueryTopicsByWeek(ctx, w.ID)
		if err != nil {
			return Overview{}, errors.Wrap(err, "querying topics")
		}
		ov.Reinforcement = append(ov.Reinforcement, ReinforcementOverview{
			Week:        w,
			IsCompleted: completed.Has(w.WeekNumber),
			Topics:      topics,
		})
	}
	return ov, nil
}

func (s service) SetTopicStatus(ctx context.Context, st SetTopicStatus, now time.Time) (TopicProgress, error) {
	if _, err := s.repo.GetTopicByID(ctx, st.TopicID); err != nil {
		return TopicProgress{}, err
	}
	progress, err := s.repo.GetTopicProgress(ctx, st.StudentID, st.TopicID)
	if err != nil && errors.Cause(err) != ErrProgressNotFound {
		return TopicProgress{}, err
	}
	progress.StudentID = st.StudentID
	progress.TopicID = st.TopicID
	progress.Status = st.Status
	progress.UpdatedAt = now.UTC()
	return s.repo.UpsertTopicProgress(ctx, progress)
}

// SetTopicColor records the evaluation color and grants points exactly once:
// only when the topic moves into an award color from a non-award one.
func (s service) SetTopicColor(ctx context.Context, sc SetTopicColor, now time.Time) (TopicProgress, error) {
	if _, err := s.repo.GetTopicByID(ctx, sc.TopicID); err != nil {
		return TopicProgress{}, err
	}
	progress, err := s.repo.GetTopicProgress(ctx, sc.StudentID, sc.TopicID)
	if err != nil && errors.Cause(err) != ErrProgressNotFound {
		return TopicProgress{}, err
	}
	if progress.Status == "" {
		progress.Status = StatusNotStarted
	}
	award := isAwardColor(sc.Color) && !(progress.Color.Valid && isAwardColor(progress.Color.String))

	progress.StudentID = sc.StudentID
	progress.TopicID = sc.TopicID
	progress.Color = core.NullableString(sc.Color)
	progress.UpdatedAt = now.UTC()

	var saved TopicProgress
	err = core.RunInTx(ctx, s.db, func(tx core.DBExecutor) error {
		var txErr error
		if saved, txErr = s.repo.UpsertTopicProgress(ctx, progress, tx); txErr != nil {
			return txErr
		}
		if award {
			return s.repo.AddPoints(ctx, sc.StudentID, AwardPoints, tx)
		}
		return nil
	})
	if err != nil {
		return TopicProgress{}, errors.Wrap(err, "setting topic color")
	}
	return saved, nil
}

func (s service) CompleteWeek(ctx context.Context, studentID string, weekNumber int, isCompleted bool) (WeekProgress, error) {
	return s.repo.SetWeekCompleted(ctx, studentID, weekNumber, isCompleted)
}

func (s service) Points(ctx context.Context, studentID string) (int, error) {
	return s.repo.GetPoints(ctx, studentID)
}
