package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"productrag/internal/domain"
)

func TestComposer_BlockFormatsPrice(t *testing.T) {
	c := NewComposer(200)
	block := c.Block(domain.Product{Name: "Camp Sandal", Description: "Open sandal", Price: 49.5})
	assert.Equal(t, "Product: Camp Sandal\nDescription: Open sandal...\nPrice: $49.50", block)
}

func TestComposer_BlockTruncatesDescription(t *testing.T) {
	c := NewComposer(200)
	desc := strings.Repeat("é", 350)
	p := domain.Product{Name: "X", Description: desc, Price: 10}
	block := c.Block(p)

	overhead := utf8.RuneCountInString("Product: X\nDescription: ...\nPrice: $10.00")
	assert.Equal(t, overhead+200, utf8.RuneCountInString(block))
	assert.True(t, utf8.ValidString(block))
	assert.Contains(t, block, strings.Repeat("é", 200)+"...")
}

func TestComposer_ContextKeepsOrder(t *testing.T) {
	c := NewComposer(0)
	results := catalogResults()[:3]
	ctx := c.Context(results)
	blocks := strings.Split(ctx, "\nProduct: ")
	assert.Len(t, blocks, 3)
	assert.True(t, strings.HasPrefix(ctx, "Product: Trail Runner"))
	assert.Less(t, strings.Index(ctx, "Summit Boot"), strings.Index(ctx, "Camp Sandal"))
}

func TestComposer_Compose(t *testing.T) {
	c := NewComposer(200)
	results := []domain.SearchResult{{Product: domain.Product{Name: "Trail Runner", Description: "Light", Price: 89.99}}}
	prompt := c.Compose(`say "hi" to shoes`, results, nil)

	want := "Given the following product descriptions:\n\n" +
		"Product: Trail Runner\nDescription: Light...\nPrice: $89.99\n\n" +
		"Please answer the following query from a customer:\n" +
		"\"say \"hi\" to shoes\"\n\n" + Instruction
	assert.Equal(t, want, prompt)
}

func TestComposer_ComposeWithHistory(t *testing.T) {
	c := NewComposer(200)
	history := []domain.Turn{
		{Role: domain.RoleUser, Text: "tents?"},
		{Role: domain.RoleAssistant, Text: "Try the Dome 2."},
		{Role: domain.RoleUser, Text: "cheaper?"},
	}
	prompt := c.Compose("cheaper?", nil, history)
	assert.Contains(t, prompt, "Conversation so far:\nUser: tents?\nAssistant: Try the Dome 2.\nUser: cheaper?\n\n")
	assert.Less(t, strings.Index(prompt, "Conversation so far:"), strings.Index(prompt, "Please answer"))
}
