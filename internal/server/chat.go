package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/shopchat/internal/answer"
	"github.com/mohammad-safakhou/shopchat/internal/catalog"
	"github.com/mohammad-safakhou/shopchat/internal/rag"
	"github.com/mohammad-safakhou/shopchat/session"
)

type answerEngine interface {
	Answer(ctx context.Context, itemID int64, item answer.ItemContext, query string, history []string) (rag.AnswerPackage, error)
}

type productGetter interface {
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
}

// ChatHandler serves the question answering endpoint.
type ChatHandler struct {
	Catalog       productGetter
	Engine        answerEngine
	Sessions      session.Store
	HistoryWindow int
	Logger        *log.Logger
}

func NewChatHandler(cat productGetter, eng answerEngine, sessions session.Store, historyWindow int) *ChatHandler {
	return &ChatHandler{
		Catalog:       cat,
		Engine:        eng,
		Sessions:      sessions,
		HistoryWindow: historyWindow,
		Logger:        log.New(log.Writer(), "[CHAT] ", log.LstdFlags),
	}
}

func (h *ChatHandler) Register(g *echo.Group) {
	g.POST("/chat", h.chat)
}

func (h *ChatHandler) chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.ProductID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "product_id is required")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	ctx := c.Request().Context()

	product, err := h.Catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return err
	}

	sessionID, err := h.Sessions.Ensure(ctx, req.SessionID)
	if err != nil {
		return err
	}
	history, err := h.Sessions.Questions(ctx, sessionID, h.HistoryWindow)
	if err != nil {
		h.Logger.Printf("warn: session %s history unavailable: %v", sessionID, err)
		history = nil
	}
	history = mergeHistory(history, req.History)

	start := time.Now()
	pkg, err := h.Engine.Answer(ctx, product.ID, answer.ItemContext{
		Name:     product.Name,
		Category: product.Category,
	}, req.Message, history)
	chatDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		chatRequests.WithLabelValues("error").Inc()
		return err
	}
	chatRequests.WithLabelValues("ok").Inc()
	retrievedSources.Observe(float64(len(pkg.Sources)))

	if err := h.Sessions.AppendQuestion(ctx, sessionID, req.Message); err != nil {
		h.Logger.Printf("warn: session %s append failed: %v", sessionID, err)
	}

	return c.JSON(http.StatusOK, ChatResponse{
		Answer:             pkg.Answer,
		Sources:            toSourceRefs(pkg.Sources),
		SuggestedQuestions: pkg.SuggestedQuestions,
		SessionID:          sessionID,
	})
}

// mergeHistory appends the client-supplied questions after the stored ones,
// skipping exact duplicates so clients that echo back stored history do not
// double-count it.
func mergeHistory(stored, supplied []string) []string {
	if len(supplied) == 0 {
		return stored
	}
	seen := make(map[string]bool, len(stored))
	for _, q := range stored {
		seen[q] = true
	}
	merged := stored
	for _, q := range supplied {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		merged = append(merged, q)
	}
	return merged
}
