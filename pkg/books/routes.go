package books

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes mounts the book endpoints on the given group, normally
// /api/v1. Paths mirror the public API contract, verb quirks included.
func RegisterRoutes(g *echo.Group, db *bun.DB) {
	bookService := NewService(db)

	h := &handler{
		bookService: bookService,
	}

	g.POST("/addbook", h.create)
	g.GET("/books", h.list)
	g.GET("/book/:id", h.retrieve)
	g.PUT("/updatebook/:id", h.update)
	g.DELETE("/deletebook/:id", h.remove)
	g.POST("/books/:id/borrow", h.borrow)
	g.POST("/books/:id/return", h.returnBook)
}
