package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/lingora/backend/core"
	"github.com/lingora/backend/core/schedule"
)

type scheduleRepository struct {
	db *scheduleTables
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *DB) schedule.Repository {
	return &scheduleRepository{db: db.schedule}
}

func (repo *scheduleRepository) GetAvailability(ctx context.Context, ownerID string, exec ...core.DBExecutor) ([]schedule.AvailabilityRange, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := repo.db.availability[ownerID]
	out := make([]schedule.AvailabilityRange, len(rows))
	copy(out, rows)
	return out, nil
}

func (repo *scheduleRepository) DeleteAvailability(ctx context.Context, ownerID string, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.availability, ownerID)
	return nil
}

func (repo *scheduleRepository) CreateAvailability(ctx context.Context, ownerID string, ranges []schedule.TimeRange, exec ...core.DBExecutor) ([]schedule.AvailabilityRange, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	now := time.Now().UTC()
	rows := make([]schedule.AvailabilityRange, 0, len(ranges))
	for _, r := range ranges {
		rows = append(rows, schedule.AvailabilityRange{
			ID:        newPK(),
			OwnerID:   ownerID,
			Day:       r.Day,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			CreatedAt: now,
		})
	}
	repo.db.availability[ownerID] = append(repo.db.availability[ownerID], rows...)
	return rows, nil
}

func (repo *scheduleRepository) CreateEvent(ctx context.Context, ev schedule.Event, exec ...core.DBExecutor) (schedule.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ev.ID = newPK()
	repo.db.events[ev.ID] = &ev
	return ev, nil
}

func (repo *scheduleRepository) GetEventByID(ctx context.Context, id string, exec ...core.DBExecutor) (schedule.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ev, ok := repo.db.events[id]; ok {
		return *ev, nil
	}
	return schedule.Event{}, schedule.ErrEventNotFound
}

func (repo *scheduleRepository) FilterEvents(ctx context.Context, filter schedule.EventFilter, exec ...core.DBExecutor) ([]schedule.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var events []schedule.Event
	for _, ev := range repo.db.events {
		if filter.Day != nil && ev.Day != *filter.Day {
			continue
		}
		if filter.Type != "" && ev.Type != filter.Type {
			continue
		}
		if filter.Level != "" && ev.Level.String != filter.Level {
			continue
		}
		if filter.Room != "" && ev.Room.String != filter.Room {
			continue
		}
		events = append(events, *ev)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Day != events[j].Day {
			return events[i].Day < events[j].Day
		}
		return events[i].StartTime < events[j].StartTime
	})
	return events, nil
}

func (repo *scheduleRepository) UpdateEvent(ctx context.Context, ev schedule.Event, exec ...core.DBExecutor) (schedule.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.events[ev.ID]
	if !ok {
		return schedule.Event{}, schedule.ErrEventNotFound
	}
	ev.Attachment = orig.Attachment
	ev.CreatedAt = orig.CreatedAt
	repo.db.events[ev.ID] = &ev
	return ev, nil
}

func (repo *scheduleRepository) DeleteEventsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.events, id)
	}
	return nil
}

func (repo *scheduleRepository) SetEventAttachment(ctx context.Context, id, objectPath string, exec ...core.DBExecutor) (schedule.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ev, ok := repo.db.events[id]
	if !ok {
		return schedule.Event{}, schedule.ErrEventNotFound
	}
	ev.Attachment = core.NullableString(objectPath)
	ev.UpdatedAt = time.Now().UTC()
	return *ev, nil
}

func (repo *scheduleRepository) CreateAssignment(ctx context.Context, asg schedule.Assignment, exec ...core.DBExecutor) (schedule.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	asg.ID = newPK()
	repo.db.assignments[asg.ID] = &asg
	return asg, nil
}

func (repo *scheduleRepository) GetAssignmentByID(ctx context.Context, id string, exec ...core.DBExecutor) (schedule.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if asg, ok := repo.db.assignments[id]; ok {
		return *asg, nil
	}
	return schedule.Assignment{}, schedule.ErrAssignmentNotFound
}

func (repo *scheduleRepository) FilterAssignments(ctx context.Context, filter schedule.AssignmentFilter, exec ...core.DBExecutor) ([]schedule.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var assignments []schedule.Assignment
	for _, asg := range repo.db.assignments {
		if filter.StudentID != "" && asg.StudentID != filter.StudentID {
			continue
		}
		if filter.EventID != "" && asg.EventID != filter.EventID {
			continue
		}
		if filter.ActiveOnly && !asg.IsActive {
			continue
		}
		assignments = append(assignments, *asg)
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].CreatedAt.Before(assignments[j].CreatedAt) })
	return assignments, nil
}

func (repo *scheduleRepository) SetAssignmentActive(ctx context.Context, id string, isActive bool, exec ...core.DBExecutor) (schedule.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	asg, ok := repo.db.assignments[id]
	if !ok {
		return schedule.Assignment{}, schedule.ErrAssignmentNotFound
	}
	asg.IsActive = isActive
	asg.UpdatedAt = time.Now().UTC()
	return *asg, nil
}
