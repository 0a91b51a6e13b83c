package controllers

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path"

	"mazza/src/common"
	"mazza/src/lib"
	"mazza/src/middlewares"
	"mazza/src/models"
	"mazza/src/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BookingsController struct {
	bookings *common.BookingService
	tempDir  string
}

func NewBookingsController(bookings *common.BookingService, tempDir string) *BookingsController {
	return &BookingsController{bookings: bookings, tempDir: tempDir}
}

func bindID(ctx *gin.Context) (uuid.UUID, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(params.ID)
}

func (c *BookingsController) CreateBooking(ctx *gin.Context) (res *common.BookingResult, status int, err error) {
	var headers types.IdempotencyHeaders
	if err := ctx.ShouldBindHeader(&headers); err != nil {
		return nil, http.StatusBadRequest, err
	}
	var body types.CreateBookingRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	productID, err := uuid.Parse(body.ProductID)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	res, err = c.bookings.CreateBooking(ctx.Request.Context(), common.CreateBookingInput{
		UserID:          middlewares.ActorID(ctx),
		ProductID:       productID,
		Quantity:        body.Quantity,
		PaymentMethodID: body.PaymentMethodID,
		IdempotencyKey:  headers.IdempotencyKey,
	})
	if err != nil {
		return nil, StatusFor(err), err
	}
	return res, http.StatusCreated, nil
}

func (c *BookingsController) GetBooking(ctx *gin.Context) (booking *models.Booking, status int, err error) {
	id, err := bindID(ctx)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	booking, err = c.bookings.GetBooking(ctx.Request.Context(), id, middlewares.ActorID(ctx))
	if err != nil {
		return nil, StatusFor(err), err
	}
	return booking, http.StatusOK, nil
}

func (c *BookingsController) CancelBooking(ctx *gin.Context) (res *common.CancelResult, status int, err error) {
	id, err := bindID(ctx)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	var body types.CancelBookingRequestBody
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&body); err != nil {
			return nil, http.StatusBadRequest, err
		}
	}
	res, err = c.bookings.Cancel(ctx.Request.Context(), id, middlewares.ActorID(ctx), body.Reason)
	if err != nil {
		return nil, StatusFor(err), err
	}
	return res, http.StatusOK, nil
}

// BookingQRCode renders the booking's pickup code to a JPEG in the temp dir.
func (c *BookingsController) BookingQRCode(ctx *gin.Context) (filePath string, status int, err error) {
	booking, status, err := c.GetBooking(ctx)
	if err != nil {
		return "", status, err
	}
	if booking.QRCodeData == "" {
		return "", http.StatusConflict, types.NewInvalidStateTransition("booking", booking.Status, "QR_ISSUED")
	}
	dir := path.Join(c.tempDir, "qrcodes")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("Could not create qrcode dir [%s]: %s\n", dir, err.Error())
		return "", http.StatusInternalServerError, err
	}
	filePath = path.Join(dir, fmt.Sprintf("%s.jpeg", booking.ID.String()))
	if err := lib.WriteQRCode(booking.QRCodeData, filePath); err != nil {
		return "", http.StatusInternalServerError, err
	}
	return filePath, http.StatusOK, nil
}

func (c *BookingsController) Impact(ctx *gin.Context) (impact *models.UserImpact, status int, err error) {
	impact, err = c.bookings.Impact(ctx.Request.Context(), middlewares.ActorID(ctx))
	if err != nil {
		return nil, StatusFor(err), err
	}
	return impact, http.StatusOK, nil
}

func (c *BookingsController) Notifications(ctx *gin.Context) (notifications []models.Notification, status int, err error) {
	notifications, err = c.bookings.Notifications(ctx.Request.Context(), middlewares.ActorID(ctx))
	if err != nil {
		return nil, StatusFor(err), err
	}
	return notifications, http.StatusOK, nil
}
