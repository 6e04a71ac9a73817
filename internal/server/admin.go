package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/shopchat/internal/worker"
)

// AdminHandler exposes operational endpoints. Access control is expected to
// come from the deployment (ingress or gateway), not from this service.
type AdminHandler struct {
	Indexer *worker.Indexer
}

func (h *AdminHandler) Register(g *echo.Group) {
	g.POST("/reindex", h.reindex)
}

func (h *AdminHandler) reindex(c echo.Context) error {
	var req ReindexRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()

	if len(req.ProductIDs) == 0 {
		n, err := h.Indexer.ReindexAll(ctx)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, ReindexResponse{Products: n})
	}
	if err := h.Indexer.ReindexItems(ctx, req.ProductIDs); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ReindexResponse{Products: len(req.ProductIDs)})
}
