package models

import "strings"

// Location is a lightweight postal location shared by VA and business profiles.
type Location struct {
	City     string `bson:"city,omitempty" json:"city,omitempty"`
	Province string `bson:"province,omitempty" json:"province,omitempty"`
	State    string `bson:"state,omitempty" json:"state,omitempty"`
	Barangay string `bson:"barangay,omitempty" json:"barangay,omitempty"`
	Country  string `bson:"country,omitempty" json:"country,omitempty"`
	Name     string `bson:"name,omitempty" json:"name,omitempty"`
}

// HasCityAndRegion is true when a city and a province or state are set.
func (l *Location) HasCityAndRegion() bool {
	if l == nil {
		return false
	}
	return strings.TrimSpace(l.City) != "" &&
		(strings.TrimSpace(l.Province) != "" || strings.TrimSpace(l.State) != "")
}

// Display returns the configured display name or "city, region, country".
func (l *Location) Display() string {
	if l == nil {
		return ""
	}
	if l.Name != "" {
		return l.Name
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{l.City, l.Province, l.State, l.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Pagination is the page metadata returned by list endpoints.
type Pagination struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	Pages       int   `json:"pages"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// NewPagination computes page counts for total items.
func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		Page:        page,
		Limit:       limit,
		Total:       total,
		Pages:       pages,
		TotalPages:  pages,
		HasNextPage: page < pages,
		HasPrevPage: page > 1,
	}
}

// NormalizePage clamps page/limit query values. A zero limit picks def; limits above max are capped.
func NormalizePage(page, limit, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return page, limit
}
