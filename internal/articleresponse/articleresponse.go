package articleresponse

import (
	"net/http"

	"github.com/SergeyParamoshkin/feeds/internal/model"
	"github.com/go-chi/render"
)

// ArticleResponse is the response payload for an article as seen by the
// requesting user.
//
// Computed fields are filled in by the constructors: responses are nested
// in the envelope's data and render does not walk into it.
type ArticleResponse struct {
	model.FeedItem

	LikeCount    int `json:"likeCount"`
	DislikeCount int `json:"dislikeCount"`
	BlockCount   int `json:"blockCount"`
}

func NewArticleListResponse(items []model.FeedItem) []*ArticleResponse {
	list := make([]*ArticleResponse, 0, len(items))
	for _, item := range items {
		list = append(list, NewArticleResponse(item))
	}

	return list
}

func NewArticleResponse(item model.FeedItem) *ArticleResponse {
	return &ArticleResponse{
		FeedItem:     item,
		LikeCount:    item.Likes.Len(),
		DislikeCount: item.Dislikes.Len(),
		BlockCount:   item.Blocks.Len(),
	}
}

func (rd *ArticleResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

var _ render.Renderer = (*ArticleResponse)(nil)
