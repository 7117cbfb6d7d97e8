package schedule

import (
	"context"
	"io"
	"path"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/lingora/backend/core"
)

var (
	// errors
	ErrEventNotFound      = errors.New("event not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrNoAttachment       = errors.New("event has no attachment")

	roomTakenText = "this room is already booked for an overlapping event"
)

type (
	Repository interface {
		GetAvailability(ctx context.Context, ownerID string, exec ...core.DBExecutor) ([]AvailabilityRange, error)
		DeleteAvailability(ctx context.Context, ownerID string, exec ...core.DBExecutor) error
		CreateAvailability(ctx context.Context, ownerID string, ranges []TimeRange, exec ...core.DBExecutor) ([]AvailabilityRange, error)

		CreateEvent(ctx context.Context, ev Event, exec ...core.DBExecutor) (Event, error)
		GetEventByID(ctx context.Context, id string, exec ...core.DBExecutor) (Event, error)
		// FilterEvents applies AND operation on available EventFilter fields,
		// ordered by day_of_week then start_time.
		FilterEvents(ctx context.Context, filter EventFilter, exec ...core.DBExecutor) ([]Event, error)
		UpdateEvent(ctx context.Context, ev Event, exec ...core.DBExecutor) (Event, error)
		DeleteEventsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error
		SetEventAttachment(ctx context.Context, id, objectPath string, exec ...core.DBExecutor) (Event, error)

		CreateAssignment(ctx context.Context, asg Assignment, exec ...core.DBExecutor) (Assignment, error)
		GetAssignmentByID(ctx context.Context, id string, exec ...core.DBExecutor) (Assignment, error)
		FilterAssignments(ctx context.Context, filter AssignmentFilter, exec ...core.DBExecutor) ([]Assignment, error)
		SetAssignmentActive(ctx context.Context, id string, isActive bool, exec ...core.DBExecutor) (Assignment, error)
	}

	Service interface {
		ReplaceAvailability(ctx context.Context, ownerID string, selection SlotSet) ([]TimeRange, error)
		Availability(ctx context.Context, ownerID string) ([]TimeRange, error)
		AvailabilitySlots(ctx context.Context, ownerID string) (SlotSet, error)

		CreateEvent(ctx context.Context, ne NewEvent) (Event, error)
		QuickCreateEvents(ctx context.Context, qc QuickCreate) ([]Event, error)
		GetEvent(ctx context.Context, id string) (Event, error)
		QueryEvents(ctx context.Context, filter EventFilter) ([]Event, error)
		QueryEventLayouts(ctx context.Context, filter EventFilter) ([]EventLayout, error)
		UpdateEvent(ctx context.Context, id string, ue UpdateEvent) (Event, error)
		DeleteEvents(ctx context.Context, ids ...string) error
		AttachFile(ctx context.Context, eventID, filename string, r io.Reader, size int64, contentType string) (Event, error)
		AttachmentURL(ctx context.Context, eventID string) (string, error)

		AssignStudent(ctx context.Context, na NewAssignment) (Assignment, error)
		DeactivateAssignment(ctx context.Context, id string) (Assignment, error)
		ReactivateAssignment(ctx context.Context, id string) (Assignment, error)
		QueryAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error)

		Grid() Grid
	}

	service struct {
		db    core.DB
		repo  Repository
		store core.ObjectStorage
		grid  Grid
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, store core.ObjectStorage, grid Grid) Service {
	return &service{
		db:    db,
		repo:  repo,
		store: store,
		grid:  grid,
	}
}

func (svc *service) Grid() Grid { return svc.grid }

// ReplaceAvailability merges the selected cells into contiguous ranges and
// swaps them in for the owner's stored ranges. Delete and insert run in one
// transaction so a failed insert cannot leave the owner with no availability.
func (svc *service) ReplaceAvailability(ctx context.Context, ownerID string, selection SlotSet) ([]TimeRange, error) {
	for _, s := range selection.Slots() {
		if err := svc.checkGridSlot("slots", s); err != nil {
			return nil, err
		}
	}

	merged := MergeSlots(selection)
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.repo.DeleteAvailability(ctx, ownerID, tx); err != nil {
			return err
		}
		if len(merged) == 0 {
			return nil
		}
		_, err := svc.repo.CreateAvailability(ctx, ownerID, merged, tx)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "replacing availability")
	}
	return merged, nil
}

// checkGridSlot rejects cells outside the configured grid; anything past
// EndHour-1 would merge into ranges the HH:MM parser cannot read back.
func (svc *service) checkGridSlot(field string, s Slot) error {
	if svc.grid.ContainsSlot(s) {
		return nil
	}
	err := errors.Errorf("slot (day %d, hour %d) is outside the schedule grid", s.Day, s.Hour)
	return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
}

func (svc *service) Availability(ctx context.Context, ownerID string) ([]TimeRange, error) {
	rows, err := svc.repo.GetAvailability(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	ranges := make([]TimeRange, 0, len(rows))
	for _, row := range rows {
		ranges = append(ranges, row.TimeRange())
	}
	return ranges, nil
}

func (svc *service) AvailabilitySlots(ctx context.Context, ownerID string) (SlotSet, error) {
	ranges, err := svc.Availability(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return ExpandRanges(ranges)
}

func (svc *service) CreateEvent(ctx context.Context, ne NewEvent) (Event, error) {
	now := time.Now().UTC()
	ev := Event{
		Day:        ne.Day,
		StartTime:  ne.StartTime,
		EndTime:    ne.EndTime,
		Type:       ne.Type,
		Title:      ne.Title,
		Level:      null.NewString(ne.Level, ne.Level != ""),
		Room:       null.NewString(ne.Room, ne.Room != ""),
		Teacher1ID: null.NewString(ne.Teacher1ID, ne.Teacher1ID != ""),
		Teacher2ID: null.NewString(ne.Teacher2ID, ne.Teacher2ID != ""),
		Tutor1ID:   null.NewString(ne.Tutor1ID, ne.Tutor1ID != ""),
		Tutor2ID:   null.NewString(ne.Tutor2ID, ne.Tutor2ID != ""),
		Details:    null.NewString(ne.Details, ne.Details != ""),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := svc.checkRoomOverlap(ctx, ev, ""); err != nil {
		return Event{}, err
	}
	return svc.repo.CreateEvent(ctx, ev)
}

// QuickCreateEvents fans a rectangular drag selection out into one event per
// selected day, all spanning the selected hour range.
func (svc *service) QuickCreateEvents(ctx context.Context, qc QuickCreate) ([]Event, error) {
	if err := svc.checkGridSlot("anchor", qc.Anchor); err != nil {
		return nil, err
	}
	if err := svc.checkGridSlot("cursor", qc.Cursor); err != nil {
		return nil, err
	}

	dayLo, dayHi := minMax(qc.Anchor.Day, qc.Cursor.Day)
	hourLo, hourHi := minMax(qc.Anchor.Hour, qc.Cursor.Hour)

	events := make([]Event, 0, dayHi-dayLo+1)
	for day := dayLo; day <= dayHi; day++ {
		ev, err := svc.CreateEvent(ctx, NewEvent{
			Day:       day,
			StartTime: FormatHour(hourLo),
			EndTime:   FormatHour(hourHi + 1),
			Type:      qc.Type,
			Title:     qc.Title,
			Level:     qc.Level,
			Room:      qc.Room,
		})
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func (svc *service) GetEvent(ctx context.Context, id string) (Event, error) {
	return svc.repo.GetEventByID(ctx, id)
}

func (svc *service) QueryEvents(ctx context.Context, filter EventFilter) ([]Event, error) {
	return svc.repo.FilterEvents(ctx, filter)
}

// QueryEventLayouts returns events decorated with their overlay positions on
// the configured grid.
func (svc *service) QueryEventLayouts(ctx context.Context, filter EventFilter) ([]EventLayout, error) {
	events, err := svc.repo.FilterEvents(ctx, filter)
	if err != nil {
		return nil, err
	}
	layouts := make([]EventLayout, 0, len(events))
	for _, ev := range events {
		top, err := svc.grid.TopOffset(ev.StartTime)
		if err != nil {
			return nil, errors.Wrapf(err, "laying out event %s", ev.ID)
		}
		height, err := svc.grid.Height(ev.StartTime, ev.EndTime)
		if err != nil {
			return nil, errors.Wrapf(err, "laying out event %s", ev.ID)
		}
		layouts = append(layouts, EventLayout{Event: ev, TopOffset: top, Height: height})
	}
	return layouts, nil
}

func (svc *service) UpdateEvent(ctx context.Context, id string, ue UpdateEvent) (Event, error) {
	ev := Event{
		ID:         id,
		Day:        *ue.Day,
		StartTime:  ue.StartTime,
		EndTime:    ue.EndTime,
		Type:       ue.Type,
		Title:      ue.Title,
		Level:      null.NewString(ue.Level, ue.Level != ""),
		Room:       null.NewString(ue.Room, ue.Room != ""),
		Teacher1ID: null.NewString(ue.Teacher1ID, ue.Teacher1ID != ""),
		Teacher2ID: null.NewString(ue.Teacher2ID, ue.Teacher2ID != ""),
		Tutor1ID:   null.NewString(ue.Tutor1ID, ue.Tutor1ID != ""),
		Tutor2ID:   null.NewString(ue.Tutor2ID, ue.Tutor2ID != ""),
		Details:    null.NewString(ue.Details, ue.Details != ""),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := svc.checkRoomOverlap(ctx, ev, id); err != nil {
		return Event{}, err
	}
	return svc.repo.UpdateEvent(ctx, ev)
}

func (svc *service) DeleteEvents(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteEventsByID(ctx, ids)
}

func (svc *service) AttachFile(ctx context.Context, eventID, filename string, r io.Reader, size int64, contentType string) (Event, error) {
	ev, err := svc.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return Event{}, err
	}

	objectPath := path.Join("events", ev.ID, filename)
	if err = svc.store.Upload(ctx, objectPath, r, size, contentType); err != nil {
		return Event{}, errors.Wrap(err, "uploading attachment")
	}
	return svc.repo.SetEventAttachment(ctx, ev.ID, objectPath)
}

func (svc *service) AttachmentURL(ctx context.Context, eventID string) (string, error) {
	ev, err := svc.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return "", err
	}
	if !ev.Attachment.Valid {
		return "", ErrNoAttachment
	}
	url, err := svc.store.PresignedURL(ctx, ev.Attachment.String)
	return url, errors.Wrap(err, "presigning attachment URL")
}

func (svc *service) AssignStudent(ctx context.Context, na NewAssignment) (Assignment, error) {
	if _, err := svc.repo.GetEventByID(ctx, na.EventID); err != nil {
		return Assignment{}, err
	}

	// reactivate an existing assignment instead of duplicating it
	existing, err := svc.repo.FilterAssignments(ctx, AssignmentFilter{StudentID: na.StudentID, EventID: na.EventID})
	if err != nil {
		return Assignment{}, err
	}
	if len(existing) > 0 {
		return svc.ReactivateAssignment(ctx, existing[0].ID)
	}

	now := time.Now().UTC()
	return svc.repo.CreateAssignment(ctx, Assignment{
		StudentID: na.StudentID,
		EventID:   na.EventID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) DeactivateAssignment(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.SetAssignmentActive(ctx, id, false)
}

func (svc *service) ReactivateAssignment(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.SetAssignmentActive(ctx, id, true)
}

func (svc *service) QueryAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error) {
	return svc.repo.FilterAssignments(ctx, filter)
}

// checkRoomOverlap rejects events that would double-book a room on the same
// day. excludeID skips the event being updated.
func (svc *service) checkRoomOverlap(ctx context.Context, ev Event, excludeID string) error {
	if !ev.Room.Valid {
		return nil
	}

	newStart, err := MinutesOfDay(ev.StartTime)
	if err != nil {
		return err
	}
	newEnd, err := MinutesOfDay(ev.EndTime)
	if err != nil {
		return err
	}

	existing, err := svc.repo.FilterEvents(ctx, EventFilter{Day: &ev.Day, Room: ev.Room.String})
	if err != nil {
		return errors.Wrap(err, "checking room overlap")
	}
	for _, other := range existing {
		if other.ID == excludeID {
			continue
		}
		otherStart, err := MinutesOfDay(other.StartTime)
		if err != nil {
			continue // unparseable stored times never block a save
		}
		otherEnd, err := MinutesOfDay(other.EndTime)
		if err != nil {
			continue
		}
		if timesOverlap(newStart, newEnd, otherStart, otherEnd) {
			return core.NewValidationError(
				errors.Errorf("%s (%q %s-%s)", roomTakenText, other.Title, other.StartTime, other.EndTime),
				core.FieldError{Field: "room", Error: roomTakenText},
			)
		}
	}
	return nil
}

func timesOverlap(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}
