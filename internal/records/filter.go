package records

import "strings"

// Filter narrows a fetched collection. Empty values and "all" match
// everything; non-empty criteria are combined with AND.
type Filter struct {
	Status   string `form:"status"`
	Category string `form:"category"`
	Search   string `form:"search"`
}

func (f Filter) match(status, category string, haystack ...string) bool {
	if !wildcard(f.Status) && !strings.EqualFold(f.Status, status) {
		return false
	}
	if !wildcard(f.Category) && !strings.EqualFold(f.Category, category) {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(f.Search))
	if term == "" {
		return true
	}
	for _, field := range haystack {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func wildcard(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "all")
}
