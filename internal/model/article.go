package model

import (
	"strings"
	"time"
)

// MinImages is the number of images an article needs to be published.
const MinImages = 2

// Article data model. Reaction sets are keyed by user id.
type Article struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Category    Category  `json:"category" db:"category"`
	Content     string    `json:"content" db:"content"`
	AuthorID    string    `json:"author" db:"author_id"`
	AuthorName  string    `json:"authorName" db:"author_name"`
	Likes       UserSet   `json:"likes" db:"-"`
	Dislikes    UserSet   `json:"dislikes" db:"-"`
	Blocks      UserSet   `json:"blocks" db:"-"`
	Images      []string  `json:"images" db:"-"`
	Tags        []string  `json:"tags" db:"-"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Validate checks the fields every stored article must carry.
func (a Article) Validate() error {
	if err := a.ValidateFields(); err != nil {
		return err
	}

	return CheckImageCount(len(a.Images))
}

// CheckImageCount rejects an article that would carry fewer than MinImages.
func CheckImageCount(n int) error {
	if n < MinImages {
		return InvalidArgument("at least %d images are required", MinImages)
	}

	return nil
}

// ValidateFields checks everything but the images.
func (a Article) ValidateFields() error {
	switch {
	case strings.TrimSpace(a.Title) == "":
		return InvalidArgument("title is required")
	case strings.TrimSpace(a.Description) == "":
		return InvalidArgument("description is required")
	case strings.TrimSpace(a.Content) == "":
		return InvalidArgument("content is required")
	case !a.Category.Valid():
		return InvalidArgument("category must be one of %s", strings.Join(CategoryNames(), ", "))
	}

	return nil
}

// FeedItem is an article as seen by a particular user.
type FeedItem struct {
	Article

	IsLiked    bool `json:"isLiked"`
	IsDisliked bool `json:"isDisliked"`
	IsBlocked  bool `json:"isBlocked"`
}

// NewFeedItem derives the viewer's reaction flags from the article sets.
func NewFeedItem(a Article, viewerID string) FeedItem {
	return FeedItem{
		Article:    a,
		IsLiked:    a.Likes.Has(viewerID),
		IsDisliked: a.Dislikes.Has(viewerID),
		IsBlocked:  a.Blocks.Has(viewerID),
	}
}

// NormalizeTags trims, drops empty values and deduplicates while keeping
// the first-seen order. A single value may hold a comma separated list.
func NormalizeTags(values []string) []string {
	seen := map[string]struct{}{}
	tags := []string{}

	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
	}

	return tags
}
