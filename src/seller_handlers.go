package main

import (
	"mazza/src/controllers"

	"github.com/gin-gonic/gin"
)

func sellerHandlers(g *gin.RouterGroup, c *controllers.SellerController) *gin.RouterGroup {
	g.
		POST("/seller/orders/:id/complete", func(ctx *gin.Context) {
			booking, status, err := c.CompleteOrder(ctx)
			if err != nil {
				abortWithError(ctx, status, err)
				return
			}
			ctx.JSON(status, booking)
		}).
		POST("/seller/orders/:id/ready", func(ctx *gin.Context) {
			booking, status, err := c.MarkReady(ctx)
			if err != nil {
				abortWithError(ctx, status, err)
				return
			}
			ctx.JSON(status, booking)
		}).
		POST("/seller/products/:id/restock", func(ctx *gin.Context) {
			product, status, err := c.Restock(ctx)
			if err != nil {
				abortWithError(ctx, status, err)
				return
			}
			ctx.JSON(status, product)
		})
	return g
}
