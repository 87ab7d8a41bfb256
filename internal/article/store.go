package article

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/SergeyParamoshkin/feeds/internal/db"
	"github.com/SergeyParamoshkin/feeds/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Repository is the article persistence the feed, reactions and editor
// work against.
type Repository interface {
	Create(ctx context.Context, a *model.Article) error
	Get(ctx context.Context, id string) (model.Article, error)
	Update(ctx context.Context, a model.Article) (model.Article, error)
	Delete(ctx context.Context, id string) (model.Article, error)
	ByAuthor(ctx context.Context, authorID string) ([]model.Article, error)
	ByCategories(ctx context.Context, cats []model.Category, opts QueryOptions) ([]model.Article, error)
	Vote(ctx context.Context, articleID, userID string, value int) (int, error)
	Block(ctx context.Context, articleID, userID string) (bool, error)
}

// QueryOptions narrow down a category query.
type QueryOptions struct {
	// Limit of zero returns every match.
	Limit  int
	Offset int
	// Tag keeps only articles carrying it.
	Tag string
	// ExcludeBlockedBy drops articles the user blocked.
	ExcludeBlockedBy string
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

const selectArticles = `SELECT a.id, a.title, a.description, a.category, a.content, a.author_id,
	TRIM(COALESCE(u.first_name || ' ' || u.last_name, '')) AS author_name,
	a.created_at, a.updated_at
	FROM articles a LEFT JOIN users u ON u.id = a.author_id`

// Store keeps articles in a SQL database. Reactions live in article_votes,
// one row per article and user, so a like and a dislike by the same user
// cannot coexist.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create stores a new article, assigning its id and timestamps.
func (s *Store) Create(ctx context.Context, a *model.Article) error {
	if err := a.Validate(); err != nil {
		return err
	}

	a.ID = uuid.NewString()
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt

	return db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO articles
			(id, title, description, category, content, author_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			a.ID, a.Title, a.Description, a.Category, a.Content, a.AuthorID, a.CreatedAt, a.UpdatedAt,
		); err != nil {
			return errors.Wrap(err, "inserting article")
		}

		return replaceChildren(ctx, tx, a.ID, a.Images, a.Tags)
	})
}

// Get returns the article with its images, tags and reaction sets.
func (s *Store) Get(ctx context.Context, id string) (model.Article, error) {
	return get(ctx, s.db, id)
}

func get(ctx context.Context, q queryer, id string) (model.Article, error) {
	var a model.Article
	err := sqlx.GetContext(ctx, q, &a, q.Rebind(selectArticles+` WHERE a.id = ?`), id)
	if err == sql.ErrNoRows {
		return model.Article{}, model.NotFound("article not found")
	}
	if err != nil {
		return model.Article{}, errors.Wrapf(err, "getting article %s", id)
	}

	list := []model.Article{a}
	if err := loadRelations(ctx, q, list); err != nil {
		return model.Article{}, err
	}

	return list[0], nil
}

// Update overwrites the article's editable fields, images and tags.
// Reactions and the author are left untouched.
func (s *Store) Update(ctx context.Context, a model.Article) (model.Article, error) {
	if err := a.Validate(); err != nil {
		return model.Article{}, err
	}

	var updated model.Article

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE articles
			SET title = ?, description = ?, category = ?, content = ?, updated_at = ?
			WHERE id = ?`),
			a.Title, a.Description, a.Category, a.Content, s.now(), a.ID,
		)
		if err != nil {
			return errors.Wrapf(err, "updating article %s", a.ID)
		}
		if n, err := res.RowsAffected(); err != nil {
			return errors.Wrapf(err, "updating article %s", a.ID)
		} else if n == 0 {
			return model.NotFound("article not found")
		}

		if err := replaceChildren(ctx, tx, a.ID, a.Images, a.Tags); err != nil {
			return err
		}

		updated, err = get(ctx, tx, a.ID)
		return err
	})
	if err != nil {
		return model.Article{}, err
	}

	return updated, nil
}

// Delete removes the article and returns it as it was stored.
func (s *Store) Delete(ctx context.Context, id string) (model.Article, error) {
	var deleted model.Article

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		if deleted, err = get(ctx, tx, id); err != nil {
			return err
		}

		// Child rows go explicitly, sqlite only cascades with foreign keys on.
		for _, table := range []string{"article_images", "article_tags", "article_votes", "article_blocks"} {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM `+table+` WHERE article_id = ?`), id); err != nil {
				return errors.Wrapf(err, "deleting from %s", table)
			}
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM articles WHERE id = ?`), id); err != nil {
			return errors.Wrapf(err, "deleting article %s", id)
		}

		return nil
	})
	if err != nil {
		return model.Article{}, err
	}

	return deleted, nil
}

// ByAuthor returns every article written by the user, newest first.
func (s *Store) ByAuthor(ctx context.Context, authorID string) ([]model.Article, error) {
	return s.query(ctx, selectArticles+` WHERE a.author_id = ? ORDER BY a.created_at DESC, a.id`, authorID)
}

// ByCategories returns the articles in any of the categories, newest first.
func (s *Store) ByCategories(ctx context.Context, cats []model.Category, opts QueryOptions) ([]model.Article, error) {
	if len(cats) == 0 {
		return []model.Article{}, nil
	}

	query := selectArticles + ` WHERE a.category IN (?)`
	args := []interface{}{cats}

	if opts.Tag != "" {
		query += ` AND EXISTS (SELECT 1 FROM article_tags t WHERE t.article_id = a.id AND t.tag = ?)`
		args = append(args, opts.Tag)
	}
	if opts.ExcludeBlockedBy != "" {
		query += ` AND NOT EXISTS (SELECT 1 FROM article_blocks b WHERE b.article_id = a.id AND b.user_id = ?)`
		args = append(args, opts.ExcludeBlockedBy)
	}

	query += ` ORDER BY a.created_at DESC, a.id`
	if opts.Limit > 0 || opts.Offset > 0 {
		// sqlite takes no OFFSET without a LIMIT.
		limit := int64(opts.Limit)
		if limit == 0 {
			limit = math.MaxInt64
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, opts.Offset)
	}

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "expanding category query")
	}

	return s.query(ctx, query, args...)
}

func (s *Store) query(ctx context.Context, query string, args ...interface{}) ([]model.Article, error) {
	list := []model.Article{}
	if err := s.db.SelectContext(ctx, &list, s.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying articles")
	}

	if err := loadRelations(ctx, s.db, list); err != nil {
		return nil, err
	}

	return list, nil
}

// Vote records a like (1) or dislike (-1). Repeating the stored vote
// clears it, the other value replaces it. The resulting vote is returned.
func (s *Store) Vote(ctx context.Context, articleID, userID string, value int) (int, error) {
	var result int

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := exists(ctx, tx, articleID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO article_votes (article_id, user_id, value)
			VALUES (?, ?, ?)
			ON CONFLICT (article_id, user_id) DO UPDATE
			SET value = CASE WHEN article_votes.value = excluded.value THEN 0 ELSE excluded.value END`),
			articleID, userID, value,
		); err != nil {
			return errors.Wrap(err, "recording vote")
		}

		err := tx.GetContext(ctx, &result, tx.Rebind(
			`SELECT value FROM article_votes WHERE article_id = ? AND user_id = ?`), articleID, userID)
		return errors.Wrap(err, "reading vote")
	})
	if err != nil {
		return 0, err
	}

	return result, nil
}

// Block hides the article from the user. It reports whether the block is
// new.
func (s *Store) Block(ctx context.Context, articleID, userID string) (bool, error) {
	var added bool

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := exists(ctx, tx, articleID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO article_blocks (article_id, user_id)
			VALUES (?, ?) ON CONFLICT (article_id, user_id) DO NOTHING`), articleID, userID)
		if err != nil {
			return errors.Wrap(err, "recording block")
		}

		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "recording block")
		}
		added = n > 0

		return nil
	})
	if err != nil {
		return false, err
	}

	return added, nil
}

func exists(ctx context.Context, tx *sqlx.Tx, id string) error {
	var n int
	if err := tx.GetContext(ctx, &n, tx.Rebind(`SELECT COUNT(*) FROM articles WHERE id = ?`), id); err != nil {
		return errors.Wrapf(err, "checking article %s", id)
	}
	if n == 0 {
		return model.NotFound("article not found")
	}

	return nil
}

func replaceChildren(ctx context.Context, tx *sqlx.Tx, id string, images, tags []string) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM article_images WHERE article_id = ?`), id); err != nil {
		return errors.Wrap(err, "clearing images")
	}
	for i, path := range images {
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO article_images (article_id, position, path) VALUES (?, ?, ?)`), id, i, path,
		); err != nil {
			return errors.Wrap(err, "inserting image")
		}
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM article_tags WHERE article_id = ?`), id); err != nil {
		return errors.Wrap(err, "clearing tags")
	}
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO article_tags (article_id, tag) VALUES (?, ?) ON CONFLICT (article_id, tag) DO NOTHING`), id, tag,
		); err != nil {
			return errors.Wrap(err, "inserting tag")
		}
	}

	return nil
}

type childRow struct {
	ArticleID string `db:"article_id"`
	Value     string `db:"value"`
}

type voteRow struct {
	ArticleID string `db:"article_id"`
	UserID    string `db:"user_id"`
	Value     int    `db:"value"`
}

// loadRelations fills images, tags and reaction sets of the listed
// articles with one query per relation.
func loadRelations(ctx context.Context, q queryer, list []model.Article) error {
	if len(list) == 0 {
		return nil
	}

	ids := make([]string, len(list))
	index := make(map[string]*model.Article, len(list))
	for i := range list {
		a := &list[i]
		a.Images = []string{}
		a.Tags = []string{}
		a.Likes = model.NewUserSet()
		a.Dislikes = model.NewUserSet()
		a.Blocks = model.NewUserSet()
		ids[i] = a.ID
		index[a.ID] = a
	}

	var images []childRow
	if err := selectIn(ctx, q, &images,
		`SELECT article_id, path AS value FROM article_images WHERE article_id IN (?) ORDER BY article_id, position`, ids,
	); err != nil {
		return errors.Wrap(err, "loading images")
	}
	for _, row := range images {
		a := index[row.ArticleID]
		a.Images = append(a.Images, row.Value)
	}

	var tags []childRow
	if err := selectIn(ctx, q, &tags,
		`SELECT article_id, tag AS value FROM article_tags WHERE article_id IN (?) ORDER BY article_id, tag`, ids,
	); err != nil {
		return errors.Wrap(err, "loading tags")
	}
	for _, row := range tags {
		a := index[row.ArticleID]
		a.Tags = append(a.Tags, row.Value)
	}

	var votes []voteRow
	if err := selectIn(ctx, q, &votes,
		`SELECT article_id, user_id, value FROM article_votes WHERE article_id IN (?) AND value <> 0`, ids,
	); err != nil {
		return errors.Wrap(err, "loading votes")
	}
	for _, row := range votes {
		a := index[row.ArticleID]
		if row.Value > 0 {
			a.Likes.Add(row.UserID)
		} else {
			a.Dislikes.Add(row.UserID)
		}
	}

	var blocks []childRow
	if err := selectIn(ctx, q, &blocks,
		`SELECT article_id, user_id AS value FROM article_blocks WHERE article_id IN (?)`, ids,
	); err != nil {
		return errors.Wrap(err, "loading blocks")
	}
	for _, row := range blocks {
		index[row.ArticleID].Blocks.Add(row.Value)
	}

	return nil
}

func selectIn(ctx context.Context, q queryer, dest interface{}, query string, ids []string) error {
	query, args, err := sqlx.In(query, ids)
	if err != nil {
		return err
	}

	return sqlx.SelectContext(ctx, q, dest, q.Rebind(query), args...)
}
