package article

import (
	"context"
	"mime/multipart"
	"strings"

	"github.com/SergeyParamoshkin/feeds/internal/attachment"
	"github.com/SergeyParamoshkin/feeds/internal/logger"
	"github.com/SergeyParamoshkin/feeds/internal/model"
)

// Attachments stores and removes article images.
type Attachments interface {
	Save(ctx context.Context, files []*multipart.FileHeader) ([]string, error)
	Remove(ctx context.Context, refs []string)
}

// Draft is the content submitted to create or edit an article. On edit,
// empty text fields and nil Tags keep the stored values.
type Draft struct {
	Title       string
	Description string
	Category    model.Category
	Content     string
	Tags        []string
	// ExistingImages are the stored images an edit keeps.
	ExistingImages []string
	Uploads        []*multipart.FileHeader
}

// Editor creates, edits and deletes articles together with their images.
type Editor struct {
	articles    Repository
	attachments Attachments
}

func NewEditor(articles Repository, attachments Attachments) *Editor {
	return &Editor{articles: articles, attachments: attachments}
}

// Create publishes a new article by the author.
func (e *Editor) Create(ctx context.Context, authorID string, d Draft) (model.Article, error) {
	if authorID == "" {
		return model.Article{}, model.Unauthorized("user not authenticated")
	}

	a := model.Article{
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		Category:    d.Category,
		Content:     d.Content,
		AuthorID:    authorID,
		Tags:        model.NormalizeTags(d.Tags),
	}
	if err := a.ValidateFields(); err != nil {
		return model.Article{}, err
	}
	// Checked before any file is written.
	if err := model.CheckImageCount(len(d.Uploads)); err != nil {
		return model.Article{}, err
	}

	saved, err := e.attachments.Save(ctx, d.Uploads)
	if err != nil {
		return model.Article{}, err
	}
	a.Images = saved

	if err := e.articles.Create(ctx, &a); err != nil {
		e.attachments.Remove(ctx, saved)
		return model.Article{}, err
	}

	logger.FromContext(ctx).Infow("article created", "article", a.ID, "author", authorID, "images", len(saved))

	return e.articles.Get(ctx, a.ID)
}

// Update edits an article owned by the editor. The images become the kept
// existing ones followed by the uploads. Files no longer referenced are
// removed once the edit is stored.
func (e *Editor) Update(ctx context.Context, editorID, id string, d Draft) (model.Article, error) {
	current, err := e.owned(ctx, editorID, id)
	if err != nil {
		return model.Article{}, err
	}

	a := current
	if v := strings.TrimSpace(d.Title); v != "" {
		a.Title = v
	}
	if v := strings.TrimSpace(d.Description); v != "" {
		a.Description = v
	}
	if d.Category != "" {
		a.Category = d.Category
	}
	if strings.TrimSpace(d.Content) != "" {
		a.Content = d.Content
	}
	if d.Tags != nil {
		a.Tags = model.NormalizeTags(d.Tags)
	}
	if err := a.ValidateFields(); err != nil {
		return model.Article{}, err
	}

	plan, err := attachment.PlanUpdate(current.Images, d.ExistingImages, len(d.Uploads))
	if err != nil {
		return model.Article{}, err
	}

	saved, err := e.attachments.Save(ctx, d.Uploads)
	if err != nil {
		return model.Article{}, err
	}
	a.Images = plan.Images(saved)

	updated, err := e.articles.Update(ctx, a)
	if err != nil {
		e.attachments.Remove(ctx, saved)
		return model.Article{}, err
	}

	e.attachments.Remove(ctx, plan.Removed)
	logger.FromContext(ctx).Infow("article updated", "article", id,
		"added", len(saved), "removed", len(plan.Removed))

	return updated, nil
}

// Delete removes an article owned by the editor and then its images.
func (e *Editor) Delete(ctx context.Context, editorID, id string) error {
	if _, err := e.owned(ctx, editorID, id); err != nil {
		return err
	}

	deleted, err := e.articles.Delete(ctx, id)
	if err != nil {
		return err
	}

	e.attachments.Remove(ctx, deleted.Images)
	logger.FromContext(ctx).Infow("article deleted", "article", id)

	return nil
}

func (e *Editor) owned(ctx context.Context, editorID, id string) (model.Article, error) {
	if editorID == "" {
		return model.Article{}, model.Unauthorized("user not authenticated")
	}

	a, err := e.articles.Get(ctx, id)
	if err != nil {
		return model.Article{}, err
	}
	if a.AuthorID != editorID {
		return model.Article{}, model.Forbidden("only the author can modify this article")
	}

	return a, nil
}
