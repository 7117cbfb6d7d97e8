package echoapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lingora/backend/core/staffing"
	"github.com/lingora/backend/core/user"
)

type staffingApi struct {
	svc      staffing.Service
	validate *validator.Validate
}

func registerStaffingAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc staffing.Service,
	validate *validator.Validate,
) {
	api := staffingApi{
		svc:      svc,
		validate: validate,
	}

	sg := g.Group("/staffing", jwt)

	sg.POST("/hours", api.logHours, staffMiddleware())
	sg.GET("/hours", api.queryHours, staffMiddleware())
	sg.DELETE("/hours", api.destroyHours, adminMiddleware())
	sg.GET("/summary", api.allSummaries, adminMiddleware())
	sg.GET("/summary/:staffID", api.summary, staffMiddleware())
	sg.GET("/export", api.exportMonth, adminMiddleware())
}

// Handlers

func (api *staffingApi) logHours(ctx echo.Context) error {
	var data staffing.NewHourEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewHourEntry")
	}

	// staff can only log their own hours
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsAdmin {
		data.StaffID = claims.Subject
	}

	if err := data.Validate(api.validate); err != nil {
		return err
	}

	entry, err := api.svc.LogHours(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "logging hours")
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *staffingApi) queryHours(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := staffing.QueryFilter{
		StaffID: ctx.QueryParam("staff_id"),
		Kind:    ctx.QueryParam("kind"),
	}
	if y := ctx.QueryParam("year"); y != "" {
		if filter.Year, err = strconv.Atoi(y); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid year")
		}
	}
	if m := ctx.QueryParam("month"); m != "" {
		month, err := strconv.Atoi(m)
		if err != nil || month < 1 || month > 12 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid month")
		}
		filter.Month = time.Month(month)
	}

	// staff only see their own entries
	if !claims.IsAdmin {
		filter.StaffID = claims.Subject
	}

	entries, err := api.svc.QueryHours(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying hour entries")
	}
	if entries == nil {
		entries = []staffing.HourEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *staffingApi) destroyHours(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.DeleteHours(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting hour entries")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *staffingApi) allSummaries(ctx echo.Context) error {
	year, month, err := bindPeriod(ctx)
	if err != nil {
		return err
	}

	summaries, err := api.svc.AllMonthlySummaries(ctx.Request().Context(), year, month)
	if err != nil {
		return errors.Wrap(err, "building monthly summaries")
	}
	if summaries == nil {
		summaries = []staffing.EarningsSummary{}
	}
	return ctx.JSON(http.StatusOK, summaries)
}

func (api *staffingApi) summary(ctx echo.Context) error {
	staffID := ctx.Param("staffID")

	// staff only see their own summary
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsAdmin && staffID != claims.Subject {
		return errHttpForbidden
	}

	year, month, err := bindPeriod(ctx)
	if err != nil {
		return err
	}

	summary, err := api.svc.MonthlySummary(ctx.Request().Context(), staffID, year, month)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "building monthly summary")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *staffingApi) exportMonth(ctx echo.Context) error {
	year, month, err := bindPeriod(ctx)
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("hours-%d-%02d.xlsx", year, int(month))
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	ctx.Response().WriteHeader(http.StatusOK)

	return errors.Wrap(api.svc.ExportMonth(ctx.Request().Context(), year, month, ctx.Response()), "exporting month")
}

// bindPeriod reads the year and month query params, defaulting to the
// current month.
func bindPeriod(ctx echo.Context) (int, time.Month, error) {
	now := time.Now().UTC()
	year, month := now.Year(), now.Month()

	if y := ctx.QueryParam("year"); y != "" {
		var err error
		if year, err = strconv.Atoi(y); err != nil {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid year")
		}
	}
	if m := ctx.QueryParam("month"); m != "" {
		mo, err := strconv.Atoi(m)
		if err != nil || mo < 1 || mo > 12 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid month")
		}
		month = time.Month(mo)
	}
	return year, month, nil
}
