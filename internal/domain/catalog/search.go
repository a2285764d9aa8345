package catalog

import "strings"

// Search returns the products whose name or category contains query,
// ignoring case. An empty query matches everything.
func Search(products []Product, query string) []Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return products
	}

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(string(p.Category)), q) {
			out = append(out, p)
		}
	}
	return out
}
