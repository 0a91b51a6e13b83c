package controllers

import (
	"net/http"

	"mazza/src/common"
	"mazza/src/middlewares"
	"mazza/src/models"
	"mazza/src/types"

	"github.com/gin-gonic/gin"
)

type SellerController struct {
	bookings *common.BookingService
}

func NewSellerController(bookings *common.BookingService) *SellerController {
	return &SellerController{bookings: bookings}
}

func (c *SellerController) CompleteOrder(ctx *gin.Context) (booking *models.Booking, status int, err error) {
	id, err := bindID(ctx)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	var body types.CompleteOrderRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	booking, err = c.bookings.Complete(ctx.Request.Context(), id, middlewares.ActorID(ctx), body.QRCodeData)
	if err != nil {
		return nil, StatusFor(err), err
	}
	return booking, http.StatusOK, nil
}

func (c *SellerController) MarkReady(ctx *gin.Context) (booking *models.Booking, status int, err error) {
	id, err := bindID(ctx)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	booking, err = c.bookings.MarkReady(ctx.Request.Context(), id, middlewares.ActorID(ctx))
	if err != nil {
		return nil, StatusFor(err), err
	}
	return booking, http.StatusOK, nil
}

func (c *SellerController) Restock(ctx *gin.Context) (product *models.Product, status int, err error) {
	id, err := bindID(ctx)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	var body types.RestockRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	product, err = c.bookings.Restock(ctx.Request.Context(), id, middlewares.ActorID(ctx), body.Quantity)
	if err != nil {
		return nil, StatusFor(err), err
	}
	return product, http.StatusOK, nil
}
