package article

import (
	"context"

	"github.com/SergeyParamoshkin/feeds/internal/logger"
	"github.com/SergeyParamoshkin/feeds/internal/model"
	"github.com/SergeyParamoshkin/feeds/internal/telemetry"
)

// Reactor applies like, dislike and block actions.
//
// Like and dislike toggle: repeating one removes it, switching replaces
// the other. A user never both likes and dislikes an article. Block is
// idempotent and independent of votes.
type Reactor struct {
	articles    Repository
	instruments *telemetry.Instruments
}

func NewReactor(articles Repository, instruments *telemetry.Instruments) *Reactor {
	return &Reactor{articles: articles, instruments: instruments}
}

// Interact applies the action of the user to the article and returns the
// article as stored afterwards.
func (r *Reactor) Interact(ctx context.Context, articleID, userID string, action model.Action) (model.Article, error) {
	if userID == "" {
		return model.Article{}, model.Unauthorized("user not authenticated")
	}
	if _, err := model.ParseAction(string(action)); err != nil {
		return model.Article{}, err
	}

	var outcome string
	switch action {
	case model.Block:
		added, err := r.articles.Block(ctx, articleID, userID)
		if err != nil {
			return model.Article{}, err
		}
		outcome = "unchanged"
		if added {
			outcome = "added"
		}
	default:
		vote, err := r.articles.Vote(ctx, articleID, userID, action.Vote())
		if err != nil {
			return model.Article{}, err
		}
		outcome = "removed"
		if vote == action.Vote() {
			outcome = "added"
		}
	}

	r.instruments.Interaction(ctx, string(action), outcome)
	logger.FromContext(ctx).Debugw("article interaction",
		"article", articleID, "user", userID, "action", action, "outcome", outcome)

	return r.articles.Get(ctx, articleID)
}
