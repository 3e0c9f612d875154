package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/ranking"
	"github.com/trezcool/academia/core/result"
)

type resultApi struct {
	svc      *result.Service
	ranking  *ranking.Service
	validate *validator.Validate
}

func registerResultAPI(g *echo.Group, svc *result.Service, rankingSvc *ranking.Service, validate *validator.Validate) {
	api := resultApi{svc: svc, ranking: rankingSvc, validate: validate}

	rg := g.Group("/results")
	rg.GET("", api.query, staffMiddleware())
	rg.POST("", api.upsert, staffMiddleware())
	rg.POST("/bulk", api.bulkUpsert, staffMiddleware())
	rg.POST("/rank", api.rank, adminMiddleware())
	rg.GET("/grading-scale", api.gradingScale)
	rg.DELETE("/:id", api.destroy, staffMiddleware())
	rg.PUT("/:id/approve", api.approve, reviewerMiddleware())

	g.GET("/students/:id/results", api.published)
}

type (
	ApproveRequest struct {
		PrincipalComment string `json:"principal_comment" validate:"max=500"`
	}

	PublishedQuery struct {
		SessionID string `json:"session_id" query:"session_id" validate:"required"`
	}
)

func (api *resultApi) upsert(ctx echo.Context) error {
	var data result.Entry
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

	res, err := api.svc.Upsert(ctx.Request().Context(), data, p.ID)
	if err != nil {
		return errors.Wrap(err, "upserting result")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *resultApi) bulkUpsert(ctx echo.Context) error {
	var data result.BulkEntry
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

	outcomes, err := api.svc.BulkUpsert(ctx.Request().Context(), data, p.ID)
	if err != nil {
		return errors.Wrap(err, "bulk upserting results")
	}
	return ctx.JSON(http.StatusOK, outcomes)
}

func (api *resultApi) approve(ctx echo.Context) error {
	var data ApproveRequest
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	res, err := api.svc.Approve(ctx.Request().Context(), ctx.Param("id"), p.ID, data.PrincipalComment)
	if err != nil {
		return errors.Wrap(err, "approving result")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *resultApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting result")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *resultApi) query(ctx echo.Context) error {
	var filter result.QueryFilter
	if err := bind(ctx, &filter); err != nil {
		return err
	}
	if err := api.validate.Struct(filter); err != nil {
		return err
	}
	results, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying results")
	}
	return ctx.JSON(http.StatusOK, results)
}

// published lists a student's results of a published session. Students only see their own.
func (api *resultApi) published(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	studentID := ctx.Param("id")
	if !(p.IsAdmin() || p.IsTeacher()) && p.ID != studentID {
		return errHttpForbidden
	}

	var q PublishedQuery
	if err = bind(ctx, &q); err != nil {
		return err
	}
	if err = api.validate.Struct(q); err != nil {
		return err
	}

	results, err := api.svc.QueryPublished(ctx.Request().Context(), studentID, q.SessionID)
	if err != nil {
		return errors.Wrap(err, "querying published results")
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *resultApi) rank(ctx echo.Context) error {
	var data ranking.ClassRef
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ranked, err := api.ranking.RankClass(ctx.Request().Context(), data.ClassID, data.SessionID)
	if err != nil {
		return errors.Wrap(err, "ranking class")
	}
	return ctx.JSON(http.StatusOK, ranked)
}

func (api *resultApi) gradingScale(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Scale())
}
