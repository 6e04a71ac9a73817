// Package session tracks the questions asked in one chat session. Sessions
// are ephemeral: they expire with their TTL and are never persisted beyond
// it. The pipeline itself stores no conversation state.
package session

import "context"

// Store keeps an ordered question list per session id.
type Store interface {
	// Ensure returns the session for id, creating a fresh one (with a new
	// id) when id is empty or unknown.
	Ensure(ctx context.Context, id string) (string, error)

	// AppendQuestion records a question at the end of the session's history
	// and refreshes its TTL.
	AppendQuestion(ctx context.Context, id, question string) error

	// Questions returns up to limit of the most recent questions, oldest
	// first. An unknown session yields an empty history.
	Questions(ctx context.Context, id string, limit int) ([]string, error)
}
