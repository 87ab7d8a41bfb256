package userpayload

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/SergeyParamoshkin/feeds/internal/model"
)

//--
// Request and Response payloads for the users and auth endpoints.
//--

// UserPayload is the public view of a user; the credential hash never
// leaves the service.
type UserPayload struct {
	*model.User
	Name string `json:"name"`
}

func NewUserPayloadResponse(user *model.User) *UserPayload {
	return &UserPayload{User: user, Name: user.Name()}
}

func (u *UserPayload) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

const minPasswordLength = 6

type SignupRequest struct {
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Phone       string   `json:"phone"`
	Email       string   `json:"email"`
	DOB         string   `json:"dob"`
	Password    string   `json:"password"`
	Preferences []string `json:"preferences"`

	Categories []model.Category `json:"-"`
}

// Bind on SignupRequest runs after the unmarshalling is complete and
// validates the account fields.
func (s *SignupRequest) Bind(r *http.Request) error {
	s.FirstName = strings.TrimSpace(s.FirstName)
	s.LastName = strings.TrimSpace(s.LastName)
	s.Phone = strings.TrimSpace(s.Phone)
	s.Email = strings.TrimSpace(s.Email)

	if s.FirstName == "" {
		return model.InvalidArgument("name is required")
	}
	// Only a bare address is accepted, "Ada <ada@example.com>" could never
	// be used to log in.
	addr, err := mail.ParseAddress(s.Email)
	if err != nil || addr.Address != s.Email {
		return model.InvalidArgument("valid email is required")
	}
	if len(s.Password) < minPasswordLength {
		return model.InvalidArgument("password must be at least %d characters", minPasswordLength)
	}

	s.Categories, err = model.ParseCategories(s.Preferences)

	return err
}

// User converts the request to a model without credentials.
func (s *SignupRequest) User() *model.User {
	return &model.User{
		FirstName:   s.FirstName,
		LastName:    s.LastName,
		Phone:       s.Phone,
		Email:       s.Email,
		DOB:         s.DOB,
		Preferences: s.Categories,
	}
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (l *LoginRequest) Bind(r *http.Request) error {
	if strings.TrimSpace(l.Identifier) == "" || l.Password == "" {
		return model.InvalidArgument("identifier and password are required")
	}

	return nil
}

type TokenResponse struct {
	Token string `json:"token"`
	User  string `json:"user,omitempty"`
}

type PreferencesAction string

const (
	AddPreferences    PreferencesAction = "add"
	DeletePreferences PreferencesAction = "delete"
)

type PreferencesRequest struct {
	Action      PreferencesAction `json:"action"`
	Preferences []string          `json:"preferences"`

	Categories []model.Category `json:"-"`
}

func (p *PreferencesRequest) Bind(r *http.Request) error {
	if p.Action != AddPreferences && p.Action != DeletePreferences {
		return model.InvalidArgument(`invalid action, use "add" or "delete"`)
	}

	var err error
	p.Categories, err = model.ParseCategories(p.Preferences)

	return err
}

type ProfileRequest struct {
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Preferences *[]string `json:"preferences"`

	Categories []model.Category `json:"-"`
}

func (p *ProfileRequest) Bind(r *http.Request) error {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)

	if p.Preferences == nil {
		return nil
	}

	var err error
	p.Categories, err = model.ParseCategories(*p.Preferences)

	return err
}

type PasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (p *PasswordRequest) Bind(r *http.Request) error {
	if p.OldPassword == "" {
		return model.InvalidArgument("current password is required")
	}
	if len(p.NewPassword) < minPasswordLength {
		return model.InvalidArgument("password must be at least %d characters", minPasswordLength)
	}

	return nil
}
