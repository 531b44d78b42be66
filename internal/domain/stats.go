package domain

// RatingCount is the number of reviews carrying one rating value.
type RatingCount struct {
	Rating int
	Count  int
}

// RatingStats aggregates a book's reviews. Distribution always has an entry
// for every rating from MinRating to MaxRating.
type RatingStats struct {
	AverageRating float64     `json:"average_rating"`
	TotalReviews  int         `json:"total_reviews"`
	Distribution  map[int]int `json:"distribution"`
}

// NewRatingStats builds stats from per-rating counts. The average is the
// plain arithmetic mean over all reviews; it is not rounded. Counts for
// ratings outside the valid range are ignored.
func NewRatingStats(counts []RatingCount) RatingStats {
	stats := RatingStats{Distribution: make(map[int]int, MaxRating)}
	for r := MinRating; r <= MaxRating; r++ {
		stats.Distribution[r] = 0
	}

	sum := 0
	for _, c := range counts {
		if !ValidRating(c.Rating) || c.Count <= 0 {
			continue
		}
		stats.Distribution[c.Rating] += c.Count
		stats.TotalReviews += c.Count
		sum += c.Rating * c.Count
	}

	if stats.TotalReviews > 0 {
		stats.AverageRating = float64(sum) / float64(stats.TotalReviews)
	}
	return stats
}
