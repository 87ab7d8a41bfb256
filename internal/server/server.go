package server

import (
	"net/http"
	"os"
	"strings"

	"github.com/SergeyParamoshkin/feeds/internal/article"
	"github.com/SergeyParamoshkin/feeds/internal/attachment"
	"github.com/SergeyParamoshkin/feeds/internal/auth"
	"github.com/SergeyParamoshkin/feeds/internal/config"
	"github.com/SergeyParamoshkin/feeds/internal/logger"
	"github.com/SergeyParamoshkin/feeds/internal/telemetry"
	"github.com/SergeyParamoshkin/feeds/internal/user"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// New assembles the API router on top of the database. Instruments may be
// nil.
func New(cfg config.Config, database *sqlx.DB, log *zap.SugaredLogger, instruments *telemetry.Instruments) (chi.Router, error) {
	if cfg.Auth.Secret == "" {
		return nil, errors.New("auth secret is not set")
	}

	attachments, err := attachment.NewManager(cfg.Uploads.Dir, cfg.Uploads.URLPrefix, instruments)
	if err != nil {
		return nil, err
	}

	tokens := auth.NewJWT([]byte(cfg.Auth.Secret), cfg.Auth.Converted.TokenExpiry)

	users := user.NewStore(database)
	articles := article.NewStore(database)

	userAPI := user.NewAPI(users, tokens)
	articleAPI := article.NewAPI(
		articles,
		article.NewFeed(articles, users),
		article.NewReactor(articles, instruments),
		article.NewEditor(articles, attachments),
		cfg.Uploads.MaxMemory,
	)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(logger.Middleware(log))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(instruments.Middleware)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("root.")); err != nil {
			logger.FromContext(r.Context()).Errorw(err.Error())
		}
	})

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Debugw("ping")
		if _, err := w.Write([]byte("pong")); err != nil {
			logger.FromContext(r.Context()).Errorw(err.Error())
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", userAPI.AuthRoutes)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticator(tokens))

			r.Route("/articles", articleAPI.Routes)
			r.Route("/users", userAPI.Routes)
		})
	})

	serveUploads(r, "/"+strings.Trim(cfg.Uploads.URLPrefix, "/"), attachments.Dir())

	return r, nil
}

// serveUploads exposes the stored images under prefix. Directories are
// reported missing so the upload names cannot be listed.
func serveUploads(r chi.Router, prefix string, dir string) {
	if strings.ContainsAny(prefix, "{}*") {
		panic("uploads prefix does not permit any URL parameters")
	}

	files := http.StripPrefix(prefix+"/", http.FileServer(filesOnly{http.Dir(dir)}))
	r.Get(prefix+"/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}

type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil || info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}

	return file, nil
}
