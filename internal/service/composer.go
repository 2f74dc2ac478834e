package service

import (
	"fmt"
	"strings"

	"productrag/internal/domain"
)

// DefaultDescriptionLimit is how many characters of a description reach the prompt.
const DefaultDescriptionLimit = 200

// Instruction closes every prompt.
const Instruction = "Provide a helpful response based on the given product information. " +
	"Be concise and informative. Refer to products by their names and include their prices."

// Composer renders retrieved products and conversation turns into a prompt.
// It only assembles text from a fixed template.
type Composer struct {
	descriptionLimit int
}

func NewComposer(descriptionLimit int) *Composer {
	if descriptionLimit <= 0 {
		descriptionLimit = DefaultDescriptionLimit
	}
	return &Composer{descriptionLimit: descriptionLimit}
}

// Block renders one product.
func (c *Composer) Block(p domain.Product) string {
	return fmt.Sprintf("Product: %s\nDescription: %s...\nPrice: $%.2f", p.Name, truncateRunes(p.Description, c.descriptionLimit), p.Price)
}

// Context renders results in ranking order, one block per product.
func (c *Composer) Context(results []domain.SearchResult) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = c.Block(r.Product)
	}
	return strings.Join(blocks, "\n")
}

// Compose builds the full prompt. history is rendered ahead of the customer
// query when non-empty.
func (c *Composer) Compose(query string, results []domain.SearchResult, history []domain.Turn) string {
	var sb strings.Builder
	sb.WriteString("Given the following product descriptions:\n\n")
	sb.WriteString(c.Context(results))
	sb.WriteString("\n\n")
	if len(history) > 0 {
		sb.WriteString("Conversation so far:\n")
		sb.WriteString(RenderHistory(history))
		sb.WriteString("\n\n")
	}
	sb.WriteString("Please answer the following query from a customer:\n")
	sb.WriteString(`"` + query + `"`)
	sb.WriteString("\n\n")
	sb.WriteString(Instruction)
	return sb.String()
}

// RenderHistory renders turns as "Role: text" lines.
func RenderHistory(turns []domain.Turn) string {
	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = t.Role.String() + ": " + t.Text
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
