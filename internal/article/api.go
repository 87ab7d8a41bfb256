package article

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/SergeyParamoshkin/feeds/internal/articlerequest"
	"github.com/SergeyParamoshkin/feeds/internal/articleresponse"
	"github.com/SergeyParamoshkin/feeds/internal/auth"
	"github.com/SergeyParamoshkin/feeds/internal/envelope"
	"github.com/SergeyParamoshkin/feeds/internal/errresponse"
	"github.com/SergeyParamoshkin/feeds/internal/logger"
	"github.com/SergeyParamoshkin/feeds/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// API serves the articles resource. Every route expects the Authenticator
// middleware in front of it.
type API struct {
	articles  Repository
	feed      *Feed
	reactor   *Reactor
	editor    *Editor
	maxMemory int64
}

func NewAPI(articles Repository, feed *Feed, reactor *Reactor, editor *Editor, maxMemory int64) *API {
	return &API{
		articles:  articles,
		feed:      feed,
		reactor:   reactor,
		editor:    editor,
		maxMemory: maxMemory,
	}
}

// Routes for the "articles" resource.
func (a *API) Routes(r chi.Router) {
	r.With(Paginate).Get("/", a.ListArticles)
	r.Post("/", a.CreateArticle)
	r.With(Paginate).Get("/search", a.SearchArticles)
	r.Get("/user", a.UserArticles)
	r.Get("/articles/user", a.UserArticles)

	r.Route("/{articleID}", func(r chi.Router) {
		r.Use(ArticleCtx(a.articles)) // Load the Article on the request context
		r.Get("/", a.GetArticle)
		r.Put("/", a.UpdateArticle)
		r.Delete("/", a.DeleteArticle)
		r.Post("/interact", a.InteractArticle)
	})
}

// ListArticles returns the caller's feed: articles in the categories they
// follow, flagged with their own reactions.
func (a *API) ListArticles(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	opts := pageFromContext(r.Context())
	opts.Tag = strings.TrimSpace(r.URL.Query().Get("tag"))
	if v := r.URL.Query().Get("excludeBlocked"); v != "" {
		exclude, err := strconv.ParseBool(v)
		if err != nil {
			errresponse.Render(w, r, model.InvalidArgument("excludeBlocked must be a boolean"))

			return
		}
		if exclude {
			opts.ExcludeBlockedBy = userID
		}
	}

	items, err := a.feed.ForUser(r.Context(), userID, opts)
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	a.respond(w, r, envelope.New("Articles fetched successfully", articleresponse.NewArticleListResponse(items)))
}

// SearchArticles is the feed narrowed down to a single tag.
func (a *API) SearchArticles(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	opts := pageFromContext(r.Context())
	opts.Tag = strings.TrimSpace(r.URL.Query().Get("tag"))
	if opts.Tag == "" {
		errresponse.Render(w, r, model.InvalidArgument("tag is required"))

		return
	}

	items, err := a.feed.ForUser(r.Context(), userID, opts)
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	a.respond(w, r, envelope.New("Articles fetched successfully", articleresponse.NewArticleListResponse(items)))
}

// UserArticles lists the articles written by the caller.
func (a *API) UserArticles(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	items, err := a.feed.ByAuthor(r.Context(), userID)
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	a.respond(w, r, envelope.New("User articles fetched successfully", articleresponse.NewArticleListResponse(items)))
}

// CreateArticle persists the posted Article with its images and returns it
// back to the client as an acknowledgement.
func (a *API) CreateArticle(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	data, err := articlerequest.Parse(r, a.maxMemory, true)
	if err != nil {
		errresponse.RenderInvalid(w, r, err)

		return
	}

	created, err := a.editor.Create(r.Context(), userID, draft(data))
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	a.respond(w, r, envelope.Created("Article created successfully",
		articleresponse.NewArticleResponse(model.NewFeedItem(created, userID))))
}

// GetArticle returns the specific Article. It is loaded by ArticleCtx, so
// no preference filtering applies.
func (a *API) GetArticle(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	article, ok := FromContext(r.Context())
	if !ok {
		errresponse.Render(w, r, model.NotFound("article not found"))

		return
	}

	a.respond(w, r, envelope.New("Article fetched successfully",
		articleresponse.NewArticleResponse(model.NewFeedItem(article, userID))))
}

// UpdateArticle edits an existing Article. The images are the kept
// existingImages followed by the new uploads.
func (a *API) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	data, err := articlerequest.Parse(r, a.maxMemory, false)
	if err != nil {
		errresponse.RenderInvalid(w, r, err)

		return
	}

	article, _ := FromContext(r.Context())
	updated, err := a.editor.Update(r.Context(), userID, article.ID, draft(data))
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	a.respond(w, r, envelope.New("Article updated successfully",
		articleresponse.NewArticleResponse(model.NewFeedItem(updated, userID))))
}

// DeleteArticle removes an existing Article and its images.
func (a *API) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	article, _ := FromContext(r.Context())
	if err := a.editor.Delete(r.Context(), userID, article.ID); err != nil {
		errresponse.Render(w, r, err)

		return
	}

	a.respond(w, r, envelope.New("Article deleted", nil))
}

// InteractArticle applies a like, dislike or block of the caller.
func (a *API) InteractArticle(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r.Context())
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	data := &articlerequest.InteractRequest{}
	if err := render.Bind(r, data); err != nil {
		errresponse.RenderInvalid(w, r, err)

		return
	}

	article, _ := FromContext(r.Context())
	updated, err := a.reactor.Interact(r.Context(), article.ID, userID, data.Parsed)
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	a.respond(w, r, envelope.New("Interaction recorded",
		articleresponse.NewArticleResponse(model.NewFeedItem(updated, userID))))
}

func draft(data *articlerequest.ArticleRequest) Draft {
	return Draft{
		Title:          data.Title,
		Description:    data.Description,
		Category:       data.Category,
		Content:        data.Content,
		Tags:           data.Tags,
		ExistingImages: data.ExistingImages,
		Uploads:        data.Images,
	}
}

func (a *API) respond(w http.ResponseWriter, r *http.Request, resp *envelope.Response) {
	if err := render.Render(w, r, resp); err != nil {
		logger.FromContext(r.Context()).Errorw("rendering response", "error", err)
	}
}
