package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validArticle() Article {
	return Article{
		Title:       "Title",
		Description: "Description",
		Category:    Tech,
		Content:     "Content",
		Images:      []string{"uploads/a.png", "uploads/b.png"},
	}
}

func TestArticle_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Article)
		ok     bool
	}{
		{name: "valid", modify: func(*Article) {}, ok: true},
		{name: "blank title", modify: func(a *Article) { a.Title = "  " }},
		{name: "no description", modify: func(a *Article) { a.Description = "" }},
		{name: "no content", modify: func(a *Article) { a.Content = "" }},
		{name: "unknown category", modify: func(a *Article) { a.Category = "weather" }},
		{name: "one image", modify: func(a *Article) { a.Images = a.Images[:1] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validArticle()
			tt.modify(&a)

			err := a.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, KindInvalidArgument, KindOf(err))
		})
	}

	a := validArticle()
	a.Images = nil
	assert.NoError(t, a.ValidateFields())
}

func TestCheckImageCount(t *testing.T) {
	assert.NoError(t, CheckImageCount(MinImages))
	assert.NoError(t, CheckImageCount(MinImages+3))

	err := CheckImageCount(MinImages - 1)
	assert.Equal(t, KindInvalidArgument, KindOf(err))
	assert.EqualError(t, err, "at least 2 images are required")
}

func TestNewFeedItem(t *testing.T) {
	a := validArticle()
	a.Likes = NewUserSet("u1")
	a.Dislikes = NewUserSet("u2")
	a.Blocks = NewUserSet("u1")

	item := NewFeedItem(a, "u1")
	assert.True(t, item.IsLiked)
	assert.False(t, item.IsDisliked)
	assert.True(t, item.IsBlocked)

	item = NewFeedItem(a, "u2")
	assert.False(t, item.IsLiked)
	assert.True(t, item.IsDisliked)
	assert.False(t, item.IsBlocked)

	b, err := json.Marshal(NewFeedItem(a, "u3"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"likes":["u1"]`)
	assert.Contains(t, string(b), `"isLiked":false`)
	assert.Contains(t, string(b), `"author":""`)
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"go", "sql", "web"}, NormalizeTags([]string{"go, sql", " go", "", "web,,"}))
	assert.Equal(t, []string{}, NormalizeTags(nil))
}
