package dummydb

import (
	"context"
	"sort"

	"github.com/lingora/backend/core"
	"github.com/lingora/backend/core/curriculum"
)

type curriculumRepository struct {
	db *curriculumTables
}

var _ curriculum.Repository = (*curriculumRepository)(nil) // interface compliance check

func NewCurriculumRepository(db *DB) curriculum.Repository {
	return &curriculumRepository{db: db.curriculum}
}

func (repo *curriculumRepository) CheckWeekUniqueness(ctx context.Context, level string, weekNumber int, exec ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, w := range repo.db.weeks {
		if w.Level == level && w.WeekNumber == weekNumber {
			return curriculum.ErrWeekExists
		}
	}
	return nil
}

func (repo *curriculumRepository) CreateWeek(ctx context.Context, week curriculum.ProgramWeek, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if week.ID == "" {
		week.ID = newPK()
	}
	repo.db.weeks[week.ID] = &week
	return nil
}

func (repo *curriculumRepository) GetWeekByID(ctx context.Context, id string, exec ...core.DBExecutor) (curriculum.ProgramWeek, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if w, ok := repo.db.weeks[id]; ok {
		return *w, nil
	}
	return curriculum.ProgramWeek{}, curriculum.ErrWeekNotFound
}

func (repo *curriculumRepository) QueryWeeksByLevel(ctx context.Context, level string, exec ...core.DBExecutor) ([]curriculum.ProgramWeek, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var weeks []curriculum.ProgramWeek
	for _, w := range repo.db.weeks {
		if w.Level == level {
			weeks = append(weeks, *w)
		}
	}
	sortWeeks(weeks)
	return weeks, nil
}

func (repo *curriculumRepository) QueryAllWeeks(ctx context.Context, exec ...core.DBExecutor) ([]curriculum.ProgramWeek, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	weeks := make([]curriculum.ProgramWeek, 0, len(repo.db.weeks))
	for _, w := range repo.db.weeks {
		weeks = append(weeks, *w)
	}
	sort.Slice(weeks, func(i, j int) bool {
		if weeks[i].Level != weeks[j].Level {
			return weeks[i].Level < weeks[j].Level
		}
		return weeks[i].WeekNumber < weeks[j].WeekNumber
	})
	return weeks, nil
}

func (repo *curriculumRepository) UpdateWeek(ctx context.Context, week curriculum.ProgramWeek, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.weeks[week.ID]
	if !ok {
		return curriculum.ErrWeekNotFound
	}
	week.CreatedAt = orig.CreatedAt
	repo.db.weeks[week.ID] = &week
	return nil
}

func (repo *curriculumRepository) DeleteWeeksByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int64, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int64
	for _, id := range ids {
		if _, ok := repo.db.weeks[id]; ok {
			delete(repo.db.weeks, id)
			n++
		}
		for topicID, t := range repo.db.topics {
			if t.WeekID == id {
				delete(repo.db.topics, topicID)
			}
		}
	}
	return n, nil
}

func (repo *curriculumRepository) CreateTopic(ctx context.Context, topic curriculum.WeekTopic, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if topic.ID == "" {
		topic.ID = newPK()
	}
	repo.db.topics[topic.ID] = &topic
	return nil
}

func (repo *curriculumRepository) GetTopicByID(ctx context.Context, id string, exec ...core.DBExecutor) (curriculum.WeekTopic, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.topics[id]; ok {
		return *t, nil
	}
	return curriculum.WeekTopic{}, curriculum.ErrTopicNotFound
}

func (repo *curriculumRepository) QueryTopicsByWeek(ctx context.Context, weekID string, exec ...core.DBExecutor) ([]curriculum.WeekTopic, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var topics []curriculum.WeekTopic
	for _, t := range repo.db.topics {
		if t.WeekID == weekID {
			topics = append(topics, *t)
		}
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].OrderNumber < topics[j].OrderNumber })
	return topics, nil
}

func (repo *curriculumRepository) DeleteTopicsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int64, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int64
	for _, id := range ids {
		if _, ok := repo.db.topics[id]; ok {
			delete(repo.db.topics, id)
			n++
		}
	}
	return n, nil
}

func (repo *curriculumRepository) GetTopicProgress(ctx context.Context, studentID, topicID string, exec ...core.DBExecutor) (curriculum.TopicProgress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.topicProgress[studentID+"/"+topicID]; ok {
		return *p, nil
	}
	return curriculum.TopicProgress{}, curriculum.ErrProgressNotFound
}

func (repo *curriculumRepository) UpsertTopicProgress(ctx context.Context, progress curriculum.TopicProgress, exec ...core.DBExecutor) (curriculum.TopicProgress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := progress.StudentID + "/" + progress.TopicID
	if orig, ok := repo.db.topicProgress[key]; ok {
		progress.ID = orig.ID
	} else {
		progress.ID = newPK()
	}
	repo.db.topicProgress[key] = &progress
	return progress, nil
}

func (repo *curriculumRepository) QueryTopicProgressByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]curriculum.TopicProgress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var progress []curriculum.TopicProgress
	for _, p := range repo.db.topicProgress {
		if p.StudentID == studentID {
			progress = append(progress, *p)
		}
	}
	return progress, nil
}

func (repo *curriculumRepository) QueryWeekProgress(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]curriculum.WeekProgress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var progress []curriculum.WeekProgress
	for _, p := range repo.db.weekProgress {
		if p.StudentID == studentID {
			progress = append(progress, *p)
		}
	}
	sort.Slice(progress, func(i, j int) bool { return progress[i].WeekNumber < progress[j].WeekNumber })
	return progress, nil
}

func (repo *curriculumRepository) SetWeekCompleted(ctx context.Context, studentID string, weekNumber int, isCompleted bool, exec ...core.DBExecutor) (curriculum.WeekProgress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, p := range repo.db.weekProgress {
		if p.StudentID == studentID && p.WeekNumber == weekNumber {
			p.IsCompleted = isCompleted
			return *p, nil
		}
	}
	progress := curriculum.WeekProgress{
		ID:          newPK(),
		StudentID:   studentID,
		WeekNumber:  weekNumber,
		IsCompleted: isCompleted,
	}
	repo.db.weekProgress[progress.ID] = &progress
	return progress, nil
}

func (repo *curriculumRepository) AddPoints(ctx context.Context, studentID string, points int, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.points[studentID] += points
	return nil
}

func (repo *curriculumRepository) GetPoints(ctx context.Context, studentID string, exec ...core.DBExecutor) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.points[studentID], nil
}

func sortWeeks(weeks []curriculum.ProgramWeek) {
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].WeekNumber < weeks[j].WeekNumber })
}
