package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/session"
)

type sessionApi struct {
	svc      *session.Service
	validate *validator.Validate
}

func registerSessionAPI(g *echo.Group, svc *session.Service, validate *validator.Validate) {
	api := sessionApi{svc: svc, validate: validate}

	sg := g.Group("/sessions")
	sg.GET("", api.query)
	sg.POST("", api.create, adminMiddleware())
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id/entry", api.setEntry, adminMiddleware())
	sg.POST("/:id/publish", api.publish, adminMiddleware())
	sg.POST("/:id/archive", api.archive, adminMiddleware())
}

type EntryWindowRequest struct {
	Open *bool `json:"open" validate:"required"`
}

func (api *sessionApi) create(ctx echo.Context) error {
	var data session.NewSession
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	sess, err := api.svc.Create(ctx.Request().Context(), data, p.ID)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *sessionApi) query(ctx echo.Context) error {
	var filter session.QueryFilter
	if err := bind(ctx, &filter); err != nil {
		return err
	}
	sessions, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	sess, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) setEntry(ctx echo.Context) error {
	var data EntryWindowRequest
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	sess, err := api.svc.SetEntryOpen(ctx.Request().Context(), ctx.Param("id"), *data.Open)
	if err != nil {
		return errors.Wrap(err, "setting entry window")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) publish(ctx echo.Context) error {
	sess, err := api.svc.Publish(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "publishing session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) archive(ctx echo.Context) error {
	sess, err := api.svc.Archive(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "archiving session")
	}
	return ctx.JSON(http.StatusOK, sess)
}
