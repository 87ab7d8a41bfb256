package user

import (
	"net/http"

	"github.com/SergeyParamoshkin/feeds/internal/auth"
	"github.com/SergeyParamoshkin/feeds/internal/envelope"
	"github.com/SergeyParamoshkin/feeds/internal/errresponse"
	"github.com/SergeyParamoshkin/feeds/internal/logger"
	"github.com/SergeyParamoshkin/feeds/internal/model"
	"github.com/SergeyParamoshkin/feeds/internal/userpayload"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// API serves account endpoints.
type API struct {
	users  *Store
	issuer auth.Issuer
}

func NewAPI(users *Store, issuer auth.Issuer) *API {
	return &API{users: users, issuer: issuer}
}

// AuthRoutes are public.
func (a *API) AuthRoutes(r chi.Router) {
	r.Post("/signup", a.Signup)
	r.Post("/login", a.Login)
}

// Routes expect the Authenticator middleware in front of them.
func (a *API) Routes(r chi.Router) {
	r.Get("/profile", a.Profile)
	r.Put("/profile", a.UpdateProfile)
	r.Put("/preferences", a.UpdatePreferences)
	r.Put("/password", a.UpdatePassword)
}

// Signup creates the account and returns a session token for it.
func (a *API) Signup(w http.ResponseWriter, r *http.Request) {
	data := &userpayload.SignupRequest{}
	if err := render.Bind(r, data); err != nil {
		errresponse.RenderInvalid(w, r, err)

		return
	}

	hash, err := HashPassword(data.Password)
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	u := data.User()
	u.PasswordHash = hash
	if err := a.users.Create(r.Context(), u); err != nil {
		errresponse.Render(w, r, err)

		return
	}

	token, err := a.issuer.Issue(u.ID)
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	logger.FromContext(r.Context()).Infow("user created", "user_id", u.ID)

	a.respond(w, r, envelope.Created("User created successfully", userpayload.TokenResponse{Token: token}))
}

// Login accepts an email or a phone number as identifier.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	data := &userpayload.LoginRequest{}
	if err := render.Bind(r, data); err != nil {
		errresponse.RenderInvalid(w, r, err)

		return
	}

	u, err := a.users.ByIdentifier(r.Context(), data.Identifier)
	if err != nil && !model.IsNotFound(err) {
		errresponse.Render(w, r, err)

		return
	}
	if err != nil || !CheckPassword(u.PasswordHash, data.Password) {
		errresponse.Render(w, r, model.Unauthorized("Invalid credentials"))

		return
	}

	token, err := a.issuer.Issue(u.ID)
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	a.respond(w, r, envelope.New("Login successful", userpayload.TokenResponse{Token: token, User: u.FirstName}))
}

func (a *API) Profile(w http.ResponseWriter, r *http.Request) {
	id, err := auth.UserID(r.Context())
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	u, err := a.users.Get(r.Context(), id)
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	a.respond(w, r, envelope.New("User profile retrieved successfully", userpayload.NewUserPayloadResponse(&u)))
}

func (a *API) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := auth.UserID(r.Context())
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	data := &userpayload.ProfileRequest{}
	if err := render.Bind(r, data); err != nil {
		errresponse.RenderInvalid(w, r, err)

		return
	}

	u, err := a.users.UpdateProfile(r.Context(), id, Profile{
		FirstName:   data.FirstName,
		LastName:    data.LastName,
		Preferences: data.Categories,
	})
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	a.respond(w, r, envelope.New("Profile updated successfully", userpayload.NewUserPayloadResponse(&u)))
}

func (a *API) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	id, err := auth.UserID(r.Context())
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	data := &userpayload.PreferencesRequest{}
	if err := render.Bind(r, data); err != nil {
		errresponse.RenderInvalid(w, r, err)

		return
	}

	if data.Action == userpayload.AddPreferences {
		_, err = a.users.AddPreferences(r.Context(), id, data.Categories)
	} else {
		_, err = a.users.RemovePreferences(r.Context(), id, data.Categories)
	}
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	u, err := a.users.Get(r.Context(), id)
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	a.respond(w, r, envelope.New("Preferences updated successfully", userpayload.NewUserPayloadResponse(&u)))
}

func (a *API) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	id, err := auth.UserID(r.Context())
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	data := &userpayload.PasswordRequest{}
	if err := render.Bind(r, data); err != nil {
		errresponse.RenderInvalid(w, r, err)

		return
	}

	u, err := a.users.Get(r.Context(), id)
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	if !CheckPassword(u.PasswordHash, data.OldPassword) {
		errresponse.Render(w, r, model.InvalidArgument("Current password is incorrect"))

		return
	}

	hash, err := HashPassword(data.NewPassword)
	if err == nil {
		err = a.users.SetPasswordHash(r.Context(), id, hash)
	}
	if err != nil {
		errresponse.Render(w, r, err)

		return
	}

	a.respond(w, r, envelope.New("Password updated successfully", nil))
}

func (a *API) respond(w http.ResponseWriter, r *http.Request, resp *envelope.Response) {
	if err := render.Render(w, r, resp); err != nil {
		logger.FromContext(r.Context()).Errorw("rendering response", "error", err)
	}
}
