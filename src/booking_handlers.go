package main

import (
	"mazza/src/controllers"

	"github.com/gin-gonic/gin"
)

func abortWithError(ctx *gin.Context, status int, err error) {
	ctx.AbortWithStatusJSON(status, controllers.ErrorBody(status, err))
}

func bookingHandlers(g *gin.RouterGroup, c *controllers.BookingsController) *gin.RouterGroup {
	g.
		POST("/bookings", func(ctx *gin.Context) {
			res, status, err := c.CreateBooking(ctx)
			if err != nil {
				abortWithError(ctx, status, err)
				return
			}
			if res.Replayed {
				ctx.Header("Idempotent-Replayed", "true")
			}
			ctx.JSON(status, res.Booking)
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
			booking, status, err := c.GetBooking(ctx)
			if err != nil {
				abortWithError(ctx, status, err)
				return
			}
			ctx.JSON(status, booking)
		}).
		POST("/bookings/:id/cancel", func(ctx *gin.Context) {
			res, status, err := c.CancelBooking(ctx)
			if err != nil {
				abortWithError(ctx, status, err)
				return
			}
			ctx.JSON(status, res)
		}).
		GET("/bookings/:id/qrcode", func(ctx *gin.Context) {
			filePath, status, err := c.BookingQRCode(ctx)
			if err != nil {
				abortWithError(ctx, status, err)
				return
			}
			ctx.FileAttachment(filePath, "booking.jpeg")
		}).
		GET("/me/impact", func(ctx *gin.Context) {
			impact, status, err := c.Impact(ctx)
			if err != nil {
				abortWithError(ctx, status, err)
				return
			}
			ctx.JSON(status, impact)
		}).
		GET("/notifications", func(ctx *gin.Context) {
			notifications, status, err := c.Notifications(ctx)
			if err != nil {
				abortWithError(ctx, status, err)
				return
			}
			ctx.JSON(status, gin.H{"data": notifications, "count": len(notifications)})
		})
	return g
}
