package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lingora/backend/core"
	"github.com/lingora/backend/core/curriculum"
	"github.com/lingora/backend/core/user"
)

type curriculumApi struct {
	svc      curriculum.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerCurriculumAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc curriculum.Service,
	userSvc user.Service,
	validate *validator.Validate,
) {
	api := curriculumApi{
		svc:      svc,
		userSvc:  userSvc,
		validate: validate,
	}

	cg := g.Group("/curriculum", jwt)

	// program weeks
	cg.POST("/weeks", api.createWeek, adminMiddleware())
	cg.GET("/weeks", api.queryWeeks)
	cg.DELETE("/weeks", api.destroyWeeks, adminMiddleware())
	cg.GET("/weeks/:id", api.retrieveWeek)
	cg.PUT("/weeks/:id", api.updateWeek, adminMiddleware())
	cg.GET("/weeks/:id/topics", api.queryTopics)

	// topics
	cg.POST("/topics", api.createTopic, adminMiddleware())
	cg.DELETE("/topics", api.destroyTopics, adminMiddleware())

	// student progress
	cg.GET("/students/:id/overview", api.studentOverview, studentSelfOrStaffMiddleware(userSvc))
	cg.GET("/students/:id/points", api.studentPoints, studentSelfOrStaffMiddleware(userSvc))
	cg.POST("/progress/status", api.setTopicStatus, staffMiddleware())
	cg.POST("/progress/color", api.setTopicColor, staffMiddleware())
	cg.POST("/progress/week", api.completeWeek, staffMiddleware())
}

// studentSelfOrStaffMiddleware lets a student read their own progress while
// staff and admins can read anyone's.
func studentSelfOrStaffMiddleware(userSvc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsStaff() || claims.IsAdmin || ctx.Param("id") == claims.Subject {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// Handlers

func (api *curriculumApi) createWeek(ctx echo.Context) error {
	var data curriculum.NewWeek
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewWeek")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	week, err := api.svc.CreateWeek(ctx.Request().Context(), data, time.Now().UTC())
	if err != nil {
		if errors.Cause(err) == curriculum.ErrWeekExists {
			return core.NewValidationError(nil, core.FieldError{Field: "week_number", Error: err.Error()})
		}
		return errors.Wrap(err, "creating week")
	}
	return ctx.JSON(http.StatusCreated, week)
}

func (api *curriculumApi) queryWeeks(ctx echo.Context) error {
	var weeks []curriculum.ProgramWeek
	var err error
	if level := ctx.QueryParam("level"); level != "" {
		weeks, err = api.svc.QueryWeeks(ctx.Request().Context(), level)
	} else {
		weeks, err = api.svc.QueryAllWeeks(ctx.Request().Context())
	}
	if err != nil {
		return errors.Wrap(err, "querying weeks")
	}
	if weeks == nil {
		weeks = []curriculum.ProgramWeek{}
	}
	return ctx.JSON(http.StatusOK, weeks)
}

func (api *curriculumApi) retrieveWeek(ctx echo.Context) error {
	week, err := api.svc.GetWeek(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == curriculum.ErrWeekNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding week by ID")
	}
	return ctx.JSON(http.StatusOK, week)
}

func (api *curriculumApi) updateWeek(ctx echo.Context) error {
	var data curriculum.UpdateWeek
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateWeek")
	}

	orig, err := api.svc.GetWeek(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == curriculum.ErrWeekNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding week by ID")
	}
	if err := data.Validate(api.validate, orig); err != nil {
		return err
	}

	week, err := api.svc.UpdateWeek(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		switch errors.Cause(err) {
		case curriculum.ErrWeekNotFound:
			return errHttpNotFound
		case curriculum.ErrWeekExists:
			return core.NewValidationError(nil, core.FieldError{Field: "week_number", Error: err.Error()})
		}
		return errors.Wrap(err, "updating week")
	}
	return ctx.JSON(http.StatusOK, week)
}

func (api *curriculumApi) destroyWeeks(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.DeleteWeeks(ctx.Request().Context(), query.IDs); err != nil {
		return errors.Wrap(err, "deleting weeks")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *curriculumApi) createTopic(ctx echo.Context) error {
	var data curriculum.NewTopic
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTopic")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	topic, err := api.svc.CreateTopic(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == curriculum.ErrWeekNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "creating topic")
	}
	return ctx.JSON(http.StatusCreated, topic)
}

func (api *curriculumApi) queryTopics(ctx echo.Context) error {
	topics, err := api.svc.QueryTopics(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying topics")
	}
	if topics == nil {
		topics = []curriculum.WeekTopic{}
	}
	return ctx.JSON(http.StatusOK, topics)
}

func (api *curriculumApi) destroyTopics(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.DeleteTopics(ctx.Request().Context(), query.IDs); err != nil {
		return errors.Wrap(err, "deleting topics")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *curriculumApi) studentOverview(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	studentID := ctx.Param("id")

	// default to the student's own level when none is given
	level := ctx.QueryParam("level")
	if level == "" {
		usr, err := api.userSvc.GetByID(reqCtx, studentID)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding student by ID")
		}
		level = usr.Level
	}

	overview, err := api.svc.StudentOverview(reqCtx, studentID, level)
	if err != nil {
		return errors.Wrap(err, "building student overview")
	}
	return ctx.JSON(http.StatusOK, overview)
}

func (api *curriculumApi) studentPoints(ctx echo.Context) error {
	points, err := api.svc.Points(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying points")
	}
	return ctx.JSON(http.StatusOK, PointsResponse{Points: points})
}

func (api *curriculumApi) setTopicStatus(ctx echo.Context) error {
	var data curriculum.SetTopicStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetTopicStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	progress, err := api.svc.SetTopicStatus(ctx.Request().Context(), data, time.Now().UTC())
	if err != nil {
		if errors.Cause(err) == curriculum.ErrTopicNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "setting topic status")
	}
	return ctx.JSON(http.StatusOK, progress)
}

func (api *curriculumApi) setTopicColor(ctx echo.Context) error {
	var data curriculum.SetTopicColor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetTopicColor")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	progress, err := api.svc.SetTopicColor(ctx.Request().Context(), data, time.Now().UTC())
	if err != nil {
		if errors.Cause(err) == curriculum.ErrTopicNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "setting topic color")
	}
	return ctx.JSON(http.StatusOK, progress)
}

func (api *curriculumApi) completeWeek(ctx echo.Context) error {
	var data CompleteWeekRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompleteWeekRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	progress, err := api.svc.CompleteWeek(ctx.Request().Context(), data.StudentID, data.WeekNumber, data.IsCompleted)
	if err != nil {
		return errors.Wrap(err, "completing week")
	}
	return ctx.JSON(http.StatusOK, progress)
}

type (
	CompleteWeekRequest struct {
		StudentID   string `json:"student_id" validate:"required"`
		WeekNumber  int    `json:"week_number" validate:"min=1"`
		IsCompleted bool   `json:"is_completed"`
	}

	PointsResponse struct {
		Points int `json:"points"`
	}
)
