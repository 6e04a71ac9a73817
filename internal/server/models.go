package server

import "github.com/mohammad-safakhou/shopchat/internal/rag"

// ChatRequest is the body of POST /api/chat. Callers that keep their own
// conversation state may pass prior questions directly; they are merged with
// whatever the session store holds.
type ChatRequest struct {
	ProductID int64    `json:"product_id"`
	Message   string   `json:"message"`
	SessionID string   `json:"session_id,omitempty"`
	History   []string `json:"conversation_history,omitempty"`
}

// SourceRef attributes one retrieved passage in a chat response.
type SourceRef struct {
	PassageID  string  `json:"passage_id"`
	SourceID   int64   `json:"source_id"`
	SourceType string  `json:"source_type"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Excerpt    string  `json:"excerpt"`
}

// ChatResponse is the body returned by POST /api/chat.
type ChatResponse struct {
	Answer             string      `json:"answer"`
	Sources            []SourceRef `json:"sources"`
	SuggestedQuestions []string    `json:"suggested_questions"`
	SessionID          string      `json:"session_id"`
}

// ReindexRequest selects which products to rebuild; empty means all.
type ReindexRequest struct {
	ProductIDs []int64 `json:"product_ids,omitempty"`
}

// ReindexResponse reports how many products were rebuilt.
type ReindexResponse struct {
	Products int `json:"products"`
}

const excerptLimit = 200

func toSourceRefs(results rag.RetrievalResult) []SourceRef {
	refs := make([]SourceRef, len(results))
	for i, res := range results {
		excerpt := res.Passage.Text
		if runes := []rune(excerpt); len(runes) > excerptLimit {
			excerpt = string(runes[:excerptLimit])
		}
		refs[i] = SourceRef{
			PassageID:  res.Passage.ID,
			SourceID:   res.Passage.SourceID,
			SourceType: string(res.Passage.Type),
			ChunkIndex: res.Passage.ChunkIndex,
			Score:      res.Score,
			Excerpt:    excerpt,
		}
	}
	return refs
}
