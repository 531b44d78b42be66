package domain

import (
	"strconv"
	"strings"
)

// Book is a catalog volume as returned to clients.
type Book struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Description   string   `json:"description,omitempty"`
	CoverImage    string   `json:"cover_image,omitempty"`
	PublishedDate string   `json:"published_date,omitempty"`
	PageCount     int      `json:"page_count,omitempty"`
	Genre         string   `json:"genre,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	RatingsCount  int      `json:"ratings_count,omitempty"`
	ISBN          string   `json:"isbn,omitempty"`
	Language      string   `json:"language,omitempty"`
}

// PublishedYear returns the year prefix of PublishedDate, or 0 when absent.
func (b *Book) PublishedYear() int {
	year, _, _ := strings.Cut(b.PublishedDate, "-")
	n, err := strconv.Atoi(year)
	if err != nil {
		return 0
	}
	return n
}

// Catalog ordering values.
const (
	OrderByRelevance = "relevance"
	OrderByNewest    = "newest"
)

// Print type values.
const (
	PrintTypeAll       = "all"
	PrintTypeBooks     = "books"
	PrintTypeMagazines = "magazines"
)

// SearchFilters narrows a catalog search. Zero values mean "no filter".
type SearchFilters struct {
	MaxResults   int
	OrderBy      string
	Genre        string
	YearFrom     int
	YearTo       int
	PageCountMin int
	PageCountMax int
	Language     string
	MinRating    float64
	PrintType    string
}

// Match applies the filters the catalog cannot evaluate server-side.
func (f SearchFilters) Match(b *Book) bool {
	if f.YearFrom > 0 || f.YearTo > 0 {
		year := b.PublishedYear()
		if year == 0 {
			return false
		}
		if f.YearFrom > 0 && year < f.YearFrom {
			return false
		}
		if f.YearTo > 0 && year > f.YearTo {
			return false
		}
	}
	if f.PageCountMin > 0 || f.PageCountMax > 0 {
		if b.PageCount == 0 {
			return false
		}
		if f.PageCountMin > 0 && b.PageCount < f.PageCountMin {
			return false
		}
		if f.PageCountMax > 0 && b.PageCount > f.PageCountMax {
			return false
		}
	}
	if f.MinRating > 0 && (b.Rating == nil || *b.Rating < f.MinRating) {
		return false
	}
	return true
}
