package article

import (
	"context"
	"net/http"
	"strconv"

	"github.com/SergeyParamoshkin/feeds/internal/errresponse"
	"github.com/SergeyParamoshkin/feeds/internal/model"
	"github.com/go-chi/chi/v5"
)

type ctxKey int8

const (
	ctxKeyArticle ctxKey = iota
	ctxKeyPage
)

// maxLimit caps an explicit limit. Without one the whole list is returned.
const maxLimit = 1000

// ArticleCtx middleware is used to load an Article object from
// the URL parameters passed through as the request. In case
// the Article could not be found, we stop here and return a 404.
func ArticleCtx(articles Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			articleID := chi.URLParam(r, "articleID")
			if articleID == "" {
				errresponse.Render(w, r, model.NotFound("article not found"))

				return
			}

			a, err := articles.Get(r.Context(), articleID)
			if err != nil {
				errresponse.Render(w, r, err)

				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyArticle, a)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the article loaded by ArticleCtx.
func FromContext(ctx context.Context) (model.Article, bool) {
	a, ok := ctx.Value(ctxKeyArticle).(model.Article)

	return a, ok
}

// Paginate reads the optional limit and offset query parameters and passes
// them down the chain as QueryOptions.
func Paginate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		opts := QueryOptions{}

		q := r.URL.Query()
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				errresponse.Render(w, r, model.InvalidArgument("limit must be a positive number"))

				return
			}
			if n > maxLimit {
				n = maxLimit
			}
			opts.Limit = n
		}
		if v := q.Get("offset"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				errresponse.Render(w, r, model.InvalidArgument("offset must not be negative"))

				return
			}
			opts.Offset = n
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyPage, opts)))
	})
}

func pageFromContext(ctx context.Context) QueryOptions {
	if opts, ok := ctx.Value(ctxKeyPage).(QueryOptions); ok {
		return opts
	}

	return QueryOptions{}
}
