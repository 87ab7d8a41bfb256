package article

import (
	"context"

	"github.com/SergeyParamoshkin/feeds/internal/model"
)

// Preferences resolves the categories a user follows.
type Preferences interface {
	Preferences(ctx context.Context, userID string) ([]model.Category, error)
}

// Feed projects stored articles for the user viewing them.
type Feed struct {
	articles Repository
	prefs    Preferences
}

func NewFeed(articles Repository, prefs Preferences) *Feed {
	return &Feed{articles: articles, prefs: prefs}
}

// ForUser lists the articles in the user's preferred categories. A user
// without preferences gets an empty feed.
func (f *Feed) ForUser(ctx context.Context, userID string, opts QueryOptions) ([]model.FeedItem, error) {
	if userID == "" {
		return nil, model.Unauthorized("user not authenticated")
	}

	cats, err := f.prefs.Preferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cats) == 0 {
		return []model.FeedItem{}, nil
	}

	list, err := f.articles.ByCategories(ctx, cats, opts)
	if err != nil {
		return nil, err
	}

	return project(list, userID), nil
}

// ByID returns a single article as seen by the user.
func (f *Feed) ByID(ctx context.Context, userID, id string) (model.FeedItem, error) {
	a, err := f.articles.Get(ctx, id)
	if err != nil {
		return model.FeedItem{}, err
	}

	return model.NewFeedItem(a, userID), nil
}

// ByAuthor lists the articles the user wrote.
func (f *Feed) ByAuthor(ctx context.Context, userID string) ([]model.FeedItem, error) {
	if userID == "" {
		return nil, model.Unauthorized("user not authenticated")
	}

	list, err := f.articles.ByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}

	return project(list, userID), nil
}

func project(list []model.Article, viewerID string) []model.FeedItem {
	items := make([]model.FeedItem, len(list))
	for i, a := range list {
		items[i] = model.NewFeedItem(a, viewerID)
	}

	return items
}
