package rag

// SourceType classifies where a passage came from.
type SourceType string

const (
	SourceDescription SourceType = "description"
	SourceReview      SourceType = "review"
	SourceQnA         SourceType = "qna"
)

// SourceText is one raw text unit supplied by the catalog for indexing.
type SourceText struct {
	ID      int64
	ItemID  int64
	Type    SourceType
	Content string
}

// Passage is a bounded chunk of a source text, eligible for retrieval.
// Passages are created in bulk during indexing and are immutable afterwards.
type Passage struct {
	ID         string
	ItemID     int64
	SourceID   int64
	Type       SourceType
	ChunkIndex int
	Text       string
	CharStart  int
	CharEnd    int
}

// IndexEntry pairs a passage with its embedding vector for storage.
type IndexEntry struct {
	Passage Passage
	Vector  []float32
}

// SearchResult is a passage with its similarity score in [0,1].
type SearchResult struct {
	Passage Passage
	Score   float64
}

// RetrievalResult is an ordered, descending-score sequence of search results.
type RetrievalResult []SearchResult

// AnswerPackage is the final product of one answering call. Sources is
// exactly the retrieval result that grounded the prompt.
type AnswerPackage struct {
	Answer             string
	Sources            RetrievalResult
	SuggestedQuestions []string
}
