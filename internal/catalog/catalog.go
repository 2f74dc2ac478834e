// Package catalog reads the seed product file consumed by setup.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"productrag/internal/domain"
)

// Load reads a JSON array of products from path.
func Load(path string) ([]domain.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a JSON array of products and checks each entry.
func Decode(r io.Reader) ([]domain.Product, error) {
	var products []domain.Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for i, p := range products {
		if p.Name == "" {
			return nil, fmt.Errorf("catalog entry %d: missing name", i)
		}
		if p.Price < 0 {
			return nil, fmt.Errorf("catalog entry %d (%s): negative price", i, p.Name)
		}
	}
	return products, nil
}
