package quotes

import (
	"sort"
	"strings"

	"github.com/clarafin/clara/internal/domain"
)

// SearchMatch is one hit from a symbol search.
type SearchMatch struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
}

// Search matches the known-symbol catalog by ticker prefix or name
// substring, case-insensitive. Results are sorted with ticker-prefix
// matches first, then alphabetically by symbol.
func Search(query string, limit int) []SearchMatch {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return []SearchMatch{}
	}
	if limit <= 0 {
		limit = 10
	}

	matches := []SearchMatch{}
	for symbol, meta := range domain.CompanyMetadata {
		if strings.HasPrefix(symbol, q) || strings.Contains(strings.ToUpper(meta.Name), q) {
			matches = append(matches, SearchMatch{
				Symbol: symbol,
				Name:   meta.Name,
				Sector: meta.Sector,
			})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		iPrefix := strings.HasPrefix(matches[i].Symbol, q)
		jPrefix := strings.HasPrefix(matches[j].Symbol, q)
		if iPrefix != jPrefix {
			return iPrefix
		}
		return matches[i].Symbol < matches[j].Symbol
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
