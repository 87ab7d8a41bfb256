package model

// Category is the topic an article belongs to and a user may prefer.
type Category string

const (
	Sports   Category = "sports"
	Politics Category = "politics"
	Space    Category = "space"
	Tech     Category = "tech"
	News     Category = "news"
)

var categories = []Category{Sports, Politics, Space, Tech, News}

func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}

	return false
}

func CategoryNames() []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}

	return names
}

// ParseCategories validates and deduplicates a list of category names,
// keeping the order they were given in.
func ParseCategories(names []string) ([]Category, error) {
	seen := map[Category]struct{}{}
	parsed := []Category{}

	for _, n := range names {
		c := Category(n)
		if !c.Valid() {
			return nil, InvalidArgument("unknown category %q", n)
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		parsed = append(parsed, c)
	}

	return parsed, nil
}
