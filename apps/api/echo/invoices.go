package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/fee"
)

type invoiceApi struct {
	svc      *fee.Service
	validate *validator.Validate
}

func registerInvoiceAPI(g *echo.Group, svc *fee.Service, validate *validator.Validate) {
	api := invoiceApi{svc: svc, validate: validate}

	ig := g.Group("/invoices", adminMiddleware())
	ig.GET("", api.query)
	ig.POST("", api.generate)
	ig.POST("/generate", api.generateAll)
	ig.GET("/:id", api.retrieve)
	ig.POST("/:id/adjustments", api.adjust)
	ig.GET("/:id/payments", api.payments)
	ig.POST("/:id/payments", api.pay)
}

type PaymentResponse struct {
	Invoice fee.Invoice `json:"invoice"`
	Payment fee.Payment `json:"payment"`
}

func (api *invoiceApi) generate(ctx echo.Context) error {
	var data fee.NewInvoice
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	inv, outcome, err := api.svc.GenerateInvoice(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "generating invoice")
	}
	if outcome == fee.Skipped {
		return ctx.JSON(http.StatusOK, inv)
	}
	return ctx.JSON(http.StatusCreated, inv)
}

func (api *invoiceApi) generateAll(ctx echo.Context) error {
	var data fee.BulkGenerate
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	report, err := api.svc.GenerateInvoices(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "generating invoices")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *invoiceApi) query(ctx echo.Context) error {
	var filter fee.InvoiceFilter
	if err := bind(ctx, &filter); err != nil {
		return err
	}
	if err := api.validate.Struct(filter); err != nil {
		return err
	}
	invoices, err := api.svc.QueryInvoices(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying invoices")
	}
	return ctx.JSON(http.StatusOK, invoices)
}

func (api *invoiceApi) retrieve(ctx echo.Context) error {
	inv, err := api.svc.GetInvoice(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invoiceApi) adjust(ctx echo.Context) error {
	var data fee.Adjustment
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	inv, err := api.svc.ApplyAdjustment(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "applying adjustment")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invoiceApi) pay(ctx echo.Context) error {
	var data fee.NewPayment
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	data.InvoiceID = ctx.Param("id")
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	inv, pmt, err := api.svc.RecordPayment(ctx.Request().Context(), data, p.ID)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusCreated, PaymentResponse{Invoice: inv, Payment: pmt})
}

func (api *invoiceApi) payments(ctx echo.Context) error {
	payments, err := api.svc.QueryPayments(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	return ctx.JSON(http.StatusOK, payments)
}
