package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/ranking"
)

type promotionApi struct {
	svc       *ranking.Service
	threshold float64 // default when a run names none
	validate  *validator.Validate
}

func registerPromotionAPI(g *echo.Group, svc *ranking.Service, threshold float64, validate *validator.Validate) {
	api := promotionApi{svc: svc, threshold: threshold, validate: validate}

	pg := g.Group("/promotions", adminMiddleware())
	pg.GET("", api.query)
	pg.POST("/run", api.run)
	pg.PUT("/:id/override", api.override)
}

func (api *promotionApi) run(ctx echo.Context) error {
	var data ranking.PromotionRun
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	threshold := api.threshold
	if data.Threshold != nil {
		threshold = *data.Threshold
	}

	records, err := api.svc.RunPromotion(ctx.Request().Context(), data.ClassID, data.SessionID, threshold)
	if err != nil {
		return errors.Wrap(err, "running promotion")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *promotionApi) override(ctx echo.Context) error {
	var data ranking.Override
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

	rec, err := api.svc.OverridePromotion(ctx.Request().Context(), ctx.Param("id"), data, p.ID)
	if err != nil {
		return errors.Wrap(err, "overriding promotion")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *promotionApi) query(ctx echo.Context) error {
	var filter ranking.ClassRef
	if err := bind(ctx, &filter); err != nil {
		return err
	}
	records, err := api.svc.QueryPromotions(ctx.Request().Context(), filter.ClassID, filter.SessionID)
	if err != nil {
		return errors.Wrap(err, "querying promotions")
	}
	return ctx.JSON(http.StatusOK, records)
}
