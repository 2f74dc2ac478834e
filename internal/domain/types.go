package domain

import "math"

// Product is a single catalog entry. Rows are written once during setup and
// only read afterwards.
type Product struct {
	ID          int64     `json:"id,omitempty"`
	Type        string    `json:"type"`
	Brand       string    `json:"brand"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Embedding   []float32 `json:"-"`
}

// QueryConstraint is derived from the query text on every invocation.
type QueryConstraint struct {
	MaxPrice float64
}

// NoConstraint returns the constraint that admits every product.
func NoConstraint() QueryConstraint {
	return QueryConstraint{MaxPrice: math.Inf(1)}
}

// Admits reports whether a product price satisfies the constraint.
func (c QueryConstraint) Admits(price float64) bool {
	return price <= c.MaxPrice
}

// Bounded reports whether the constraint actually limits the price.
func (c QueryConstraint) Bounded() bool {
	return !math.IsInf(c.MaxPrice, 1)
}

// SearchResult is a retrieved product with its cosine similarity to the query.
type SearchResult struct {
	Product    Product
	Similarity float64
}

// Role identifies the author of a conversation turn.
type Role int

const (
	RoleUser Role = iota
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	default:
		return "Unknown"
	}
}

// Turn is one rendered message of a conversation.
type Turn struct {
	Role Role
	Text string
}
