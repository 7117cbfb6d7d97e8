package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lingora/backend/core/schedule"
	"github.com/lingora/backend/core/user"
)

type scheduleApi struct {
	svc      schedule.Service
	validate *validator.Validate
}

func registerScheduleAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc schedule.Service,
	userSvc user.Service,
	validate *validator.Validate,
) {
	api := scheduleApi{
		svc:      svc,
		validate: validate,
	}

	sg := g.Group("/schedule", jwt)

	sg.GET("/grid", api.grid)

	// availability
	avg := sg.Group("/availability/:ownerID")
	avg.GET("", api.availability)
	avg.GET("/slots", api.availabilitySlots)
	avg.PUT("", api.replaceAvailability, ownerOrAdminMiddleware(userSvc))

	// events
	sg.POST("/events", api.createEvent, adminMiddleware())
	sg.POST("/events/quick", api.quickCreateEvents, adminMiddleware())
	sg.GET("/events", api.queryEvents)
	sg.GET("/events/layouts", api.queryEventLayouts)
	sg.DELETE("/events", api.destroyEvents, adminMiddleware())
	sg.GET("/events/:id", api.retrieveEvent)
	sg.PUT("/events/:id", api.updateEvent, adminMiddleware())
	sg.POST("/events/:id/attachment", api.attachFile, staffMiddleware())
	sg.GET("/events/:id/attachment", api.attachmentURL)

	// assignments
	sg.POST("/assignments", api.assignStudent, adminMiddleware())
	sg.GET("/assignments", api.queryAssignments, staffMiddleware())
	sg.POST("/assignments/:id/deactivate", api.deactivateAssignment, adminMiddleware())
	sg.POST("/assignments/:id/reactivate", api.reactivateAssignment, adminMiddleware())
}

// ownerOrAdminMiddleware only lets the owner of the availability being
// edited, or an admin, through.
func ownerOrAdminMiddleware(userSvc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx, userSvc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if ctx.Param("ownerID") == ctxUsr.ID || ctxUsr.IsAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// Handlers

func (api *scheduleApi) grid(ctx echo.Context) error {
	grid := api.svc.Grid()
	return ctx.JSON(http.StatusOK, GridResponse{
		StartHour:     grid.StartHour,
		EndHour:       grid.EndHour,
		SlotMinutes:   grid.SlotMinutes,
		DayCount:      grid.DayCount,
		PixelsPerSlot: grid.PixelsPerSlot,
	})
}

func (api *scheduleApi) availability(ctx echo.Context) error {
	ranges, err := api.svc.Availability(ctx.Request().Context(), ctx.Param("ownerID"))
	if err != nil {
		return errors.Wrap(err, "querying availability")
	}
	if ranges == nil {
		ranges = []schedule.TimeRange{}
	}
	return ctx.JSON(http.StatusOK, ranges)
}

func (api *scheduleApi) availabilitySlots(ctx echo.Context) error {
	set, err := api.svc.AvailabilitySlots(ctx.Request().Context(), ctx.Param("ownerID"))
	if err != nil {
		return errors.Wrap(err, "querying availability slots")
	}
	return ctx.JSON(http.StatusOK, set.Slots())
}

func (api *scheduleApi) replaceAvailability(ctx echo.Context) error {
	var data AvailabilityRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AvailabilityRequest")
	}

	ranges, err := api.svc.ReplaceAvailability(ctx.Request().Context(), ctx.Param("ownerID"), schedule.NewSlotSet(data.Slots...))
	if err != nil {
		return errors.Wrap(err, "replacing availability")
	}
	if ranges == nil {
		ranges = []schedule.TimeRange{}
	}
	return ctx.JSON(http.StatusOK, ranges)
}

func (api *scheduleApi) createEvent(ctx echo.Context) error {
	var data schedule.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ev, err := api.svc.CreateEvent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, ev)
}

func (api *scheduleApi) quickCreateEvents(ctx echo.Context) error {
	var data schedule.QuickCreate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to QuickCreate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	events, err := api.svc.QuickCreateEvents(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "quick-creating events")
	}
	return ctx.JSON(http.StatusCreated, events)
}

func (api *scheduleApi) queryEvents(ctx echo.Context) error {
	filter := new(schedule.EventFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []schedule.Event{})
	}

	events, err := api.svc.QueryEvents(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	if events == nil {
		events = []schedule.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *scheduleApi) queryEventLayouts(ctx echo.Context) error {
	filter := new(schedule.EventFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []schedule.EventLayout{})
	}

	layouts, err := api.svc.QueryEventLayouts(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying event layouts")
	}
	if layouts == nil {
		layouts = []schedule.EventLayout{}
	}
	return ctx.JSON(http.StatusOK, layouts)
}

func (api *scheduleApi) retrieveEvent(ctx echo.Context) error {
	ev, err := api.svc.GetEvent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == schedule.ErrEventNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding event by ID")
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *scheduleApi) updateEvent(ctx echo.Context) error {
	var data schedule.UpdateEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvent")
	}

	orig, err := api.svc.GetEvent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == schedule.ErrEventNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding event by ID")
	}
	if err := data.Validate(api.validate, orig); err != nil {
		return err
	}

	ev, err := api.svc.UpdateEvent(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == schedule.ErrEventNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *scheduleApi) destroyEvents(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.DeleteEvents(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting events")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scheduleApi) attachFile(ctx echo.Context) error {
	fileHdr, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}

	src, err := fileHdr.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = src.Close() }()

	ev, err := api.svc.AttachFile(
		ctx.Request().Context(),
		ctx.Param("id"),
		fileHdr.Filename,
		src,
		fileHdr.Size,
		fileHdr.Header.Get("Content-Type"),
	)
	if err != nil {
		if errors.Cause(err) == schedule.ErrEventNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "attaching file")
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *scheduleApi) attachmentURL(ctx echo.Context) error {
	url, err := api.svc.AttachmentURL(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		switch errors.Cause(err) {
		case schedule.ErrEventNotFound, schedule.ErrNoAttachment:
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting attachment URL")
	}
	return ctx.JSON(http.StatusOK, AttachmentResponse{URL: url})
}

func (api *scheduleApi) assignStudent(ctx echo.Context) error {
	var data schedule.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	asg, err := api.svc.AssignStudent(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == schedule.ErrEventNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "assigning student")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *scheduleApi) queryAssignments(ctx echo.Context) error {
	filter := new(schedule.AssignmentFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []schedule.Assignment{})
	}

	assignments, err := api.svc.QueryAssignments(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []schedule.Assignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *scheduleApi) deactivateAssignment(ctx echo.Context) error {
	asg, err := api.svc.DeactivateAssignment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == schedule.ErrAssignmentNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deactivating assignment")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *scheduleApi) reactivateAssignment(ctx echo.Context) error {
	asg, err := api.svc.ReactivateAssignment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == schedule.ErrAssignmentNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "reactivating assignment")
	}
	return ctx.JSON(http.StatusOK, asg)
}

type (
	GridResponse struct {
		StartHour     int `json:"start_hour"`
		EndHour       int `json:"end_hour"`
		SlotMinutes   int `json:"slot_minutes"`
		DayCount      int `json:"day_count"`
		PixelsPerSlot int `json:"pixels_per_slot"`
	}

	AvailabilityRequest struct {
		Slots []schedule.Slot `json:"slots"`
	}

	AttachmentResponse struct {
		URL string `json:"url"`
	}
)
