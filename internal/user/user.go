package user

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/SergeyParamoshkin/feeds/internal/db"
	"github.com/SergeyParamoshkin/feeds/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const userColumns = `id, first_name, last_name, phone, email, dob, password_hash, created_at, updated_at`

// Store persists users and their category preferences.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create stores a new user, assigning its id and timestamps.
func (s *Store) Create(ctx context.Context, u *model.User) error {
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt

	return db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if taken, err := s.taken(ctx, tx, "email", u.Email); err != nil {
			return err
		} else if taken {
			return model.Conflict("email already exists")
		}

		if u.Phone != "" {
			if taken, err := s.taken(ctx, tx, "phone", u.Phone); err != nil {
				return err
			} else if taken {
				return model.Conflict("phone already exists")
			}
		}

		if err := insertUser(ctx, tx, u); err != nil {
			return err
		}

		return insertPreferences(ctx, tx, u.ID, u.Preferences)
	})
}

// insertUser leaves uniqueness to the constraints, a concurrent signup can
// slip past the checks in Create.
func insertUser(ctx context.Context, tx *sqlx.Tx, u *model.User) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		u.ID, u.FirstName, u.LastName, u.Phone, u.Email, u.DOB, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return model.Conflict("email or phone already exists")
	}

	return errors.Wrap(err, "inserting user")
}

func (s *Store) taken(ctx context.Context, tx *sqlx.Tx, column, value string) (bool, error) {
	var n int
	if err := tx.GetContext(ctx, &n, tx.Rebind(`SELECT COUNT(*) FROM users WHERE `+column+` = ?`), value); err != nil {
		return false, errors.Wrapf(err, "checking %s uniqueness", column)
	}

	return n > 0, nil
}

// Get returns the user with the given id, preferences included.
func (s *Store) Get(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if err == sql.ErrNoRows {
		return model.User{}, model.NotFound("user not found")
	}
	if err != nil {
		return model.User{}, errors.Wrapf(err, "getting user %s", id)
	}

	if u.Preferences, err = s.Preferences(ctx, id); err != nil {
		return model.User{}, err
	}

	return u, nil
}

// ByIdentifier looks a user up by email or phone.
func (s *Store) ByIdentifier(ctx context.Context, identifier string) (model.User, error) {
	identifier = strings.TrimSpace(identifier)

	var u model.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE email = ? OR (phone <> '' AND phone = ?)`),
		strings.ToLower(identifier), identifier)
	if err == sql.ErrNoRows {
		return model.User{}, model.NotFound("user not found")
	}
	if err != nil {
		return model.User{}, errors.Wrap(err, "getting user by identifier")
	}

	if u.Preferences, err = s.Preferences(ctx, u.ID); err != nil {
		return model.User{}, err
	}

	return u, nil
}

// Preferences returns the categories the user opted into.
func (s *Store) Preferences(ctx context.Context, id string) ([]model.Category, error) {
	prefs := []model.Category{}
	if err := s.db.SelectContext(ctx, &prefs, s.db.Rebind(
		`SELECT category FROM user_preferences WHERE user_id = ? ORDER BY category`), id,
	); err != nil {
		return nil, errors.Wrapf(err, "getting preferences of user %s", id)
	}

	return prefs, nil
}

// AddPreferences merges categories into the user's preferences.
func (s *Store) AddPreferences(ctx context.Context, id string, cats []model.Category) ([]model.Category, error) {
	err := s.mutate(ctx, id, func(tx *sqlx.Tx) error {
		return insertPreferences(ctx, tx, id, cats)
	})
	if err != nil {
		return nil, err
	}

	return s.Preferences(ctx, id)
}

// RemovePreferences drops categories from the user's preferences.
func (s *Store) RemovePreferences(ctx context.Context, id string, cats []model.Category) ([]model.Category, error) {
	err := s.mutate(ctx, id, func(tx *sqlx.Tx) error {
		for _, c := range cats {
			if _, err := tx.ExecContext(ctx, tx.Rebind(
				`DELETE FROM user_preferences WHERE user_id = ? AND category = ?`), id, c,
			); err != nil {
				return errors.Wrap(err, "deleting preference")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Preferences(ctx, id)
}

// Profile holds the user editable fields. Nil preferences keep the stored
// ones.
type Profile struct {
	FirstName   string
	LastName    string
	Preferences []model.Category
}

func (s *Store) UpdateProfile(ctx context.Context, id string, p Profile) (model.User, error) {
	err := s.mutate(ctx, id, func(tx *sqlx.Tx) error {
		if p.FirstName != "" {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET first_name = ? WHERE id = ?`), p.FirstName, id); err != nil {
				return errors.Wrap(err, "updating first name")
			}
		}
		if p.LastName != "" {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET last_name = ? WHERE id = ?`), p.LastName, id); err != nil {
				return errors.Wrap(err, "updating last name")
			}
		}
		if p.Preferences != nil {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM user_preferences WHERE user_id = ?`), id); err != nil {
				return errors.Wrap(err, "clearing preferences")
			}
			return insertPreferences(ctx, tx, id, p.Preferences)
		}
		return nil
	})
	if err != nil {
		return model.User{}, err
	}

	return s.Get(ctx, id)
}

func (s *Store) SetPasswordHash(ctx context.Context, id, hash string) error {
	return s.mutate(ctx, id, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET password_hash = ? WHERE id = ?`), hash, id)
		return errors.Wrap(err, "updating password")
	})
}

// mutate runs cb in a transaction after checking the user exists, and
// bumps updated_at.
func (s *Store) mutate(ctx context.Context, id string, cb func(*sqlx.Tx) error) error {
	return db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET updated_at = ? WHERE id = ?`), s.now(), id)
		if err != nil {
			return errors.Wrap(err, "touching user")
		}
		if n, err := res.RowsAffected(); err != nil {
			return errors.Wrap(err, "touching user")
		} else if n == 0 {
			return model.NotFound("user not found")
		}

		return cb(tx)
	})
}

func insertPreferences(ctx context.Context, tx *sqlx.Tx, id string, cats []model.Category) error {
	for _, c := range cats {
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO user_preferences (user_id, category) VALUES (?, ?) ON CONFLICT (user_id, category) DO NOTHING`), id, c,
		); err != nil {
			return errors.Wrap(err, "inserting preference")
		}
	}

	return nil
}
