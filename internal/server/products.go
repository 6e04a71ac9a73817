package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/shopchat/internal/catalog"
)

// ProductsHandler exposes the read-only catalog endpoints the chat UI needs.
type ProductsHandler struct {
	Catalog *catalog.Store
}

func (h *ProductsHandler) Register(g *echo.Group) {
	g.GET("/products", h.list)
	g.GET("/products/:id", h.get)
	g.GET("/products/:id/reviews", h.reviews)
	g.GET("/products/:id/qna", h.qna)
}

func (h *ProductsHandler) list(c echo.Context) error {
	products, err := h.Catalog.ListProducts(c.Request().Context())
	if err != nil {
		return err
	}
	if products == nil {
		products = []catalog.Product{}
	}
	return c.JSON(http.StatusOK, products)
}

func (h *ProductsHandler) get(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	product, err := h.Catalog.GetProduct(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductsHandler) reviews(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	reviews, err := h.Catalog.ListReviews(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if reviews == nil {
		reviews = []catalog.Review{}
	}
	return c.JSON(http.StatusOK, reviews)
}

func (h *ProductsHandler) qna(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	qnas, err := h.Catalog.ListQnA(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if qnas == nil {
		qnas = []catalog.QnA{}
	}
	return c.JSON(http.StatusOK, qnas)
}

func productID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	return id, nil
}
