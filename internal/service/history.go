package service

import "productrag/internal/domain"

// DefaultHistoryTurns keeps five user/assistant exchanges.
const DefaultHistoryTurns = 10

// History is the ordered list of conversation turns of one session.
// It is owned by a single session loop and is not safe for concurrent use.
type History struct {
	turns []domain.Turn
	limit int
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryTurns
	}
	return &History{limit: limit}
}

// Append adds a turn. The history may exceed its limit until Trim is called.
func (h *History) Append(role domain.Role, text string) {
	h.turns = append(h.turns, domain.Turn{Role: role, Text: text})
}

// Trim discards the oldest turns until at most limit remain.
func (h *History) Trim() {
	if over := len(h.turns) - h.limit; over > 0 {
		h.turns = append(h.turns[:0:0], h.turns[over:]...)
	}
}

// Turns returns a copy of the current turns, oldest first.
func (h *History) Turns() []domain.Turn {
	out := make([]domain.Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int { return len(h.turns) }

func (h *History) Limit() int { return h.limit }

// Reset empties the history.
func (h *History) Reset() { h.turns = nil }

// dropLast removes the most recent turn, used to roll back a cancelled exchange.
func (h *History) dropLast() {
	if len(h.turns) > 0 {
		h.turns = h.turns[:len(h.turns)-1]
	}
}
