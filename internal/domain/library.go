package domain

import "time"

// Reading status constants.
const (
	LibraryStatusWantToRead = "want_to_read"
	LibraryStatusReading    = "reading"
	LibraryStatusCompleted  = "completed"
)

// ValidLibraryStatuses returns the set of valid reading statuses.
func ValidLibraryStatuses() []string {
	return []string{LibraryStatusWantToRead, LibraryStatusReading, LibraryStatusCompleted}
}

// IsValidLibraryStatus checks whether status is a valid reading status.
func IsValidLibraryStatus(status string) bool {
	for _, s := range ValidLibraryStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// UserBook is a book on a user's reading list. Title, author and cover are
// copied from the catalog when the book is added.
type UserBook struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	BookID     string    `json:"book_id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	CoverImage string    `json:"cover_image"`
	ISBN       string    `json:"isbn"`
	Status     string    `json:"status"`
	Rating     *int      `json:"rating,omitempty"`
	Notes      *string   `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LibraryPatch is a partial update of a library entry.
type LibraryPatch struct {
	Status *string
	Rating *int
	Notes  *string
}

// IsEmpty reports whether the patch changes nothing.
func (p LibraryPatch) IsEmpty() bool {
	return p.Status == nil && p.Rating == nil && p.Notes == nil
}

// LibraryBookStatus says whether a book is on the user's list.
type LibraryBookStatus struct {
	InLibrary bool    `json:"in_library"`
	Status    *string `json:"status,omitempty"`
}
