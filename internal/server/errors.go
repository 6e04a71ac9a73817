package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/shopchat/internal/rag"
)

// newHTTPErrorHandler maps pipeline errors onto status codes: transient
// backend outages become 503 so callers know to retry, a corrupt index stays
// a 500 because retrying cannot help.
func newHTTPErrorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		switch {
		case errors.Is(err, rag.ErrEmbeddingUnavailable):
			code = http.StatusServiceUnavailable
			msg = "embedding backend unavailable"
		case errors.Is(err, rag.ErrGenerationUnavailable):
			code = http.StatusServiceUnavailable
			msg = "generation backend unavailable"
		case errors.Is(err, rag.ErrIndexCorrupt):
			code = http.StatusInternalServerError
			msg = "vector index unavailable"
		default:
			if he, ok := err.(*echo.HTTPError); ok {
				code = he.Code
				if he.Message != nil {
					msg = fmt.Sprint(he.Message)
				}
			}
		}
		req := c.Request()
		logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
}
