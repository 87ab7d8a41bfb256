// Feeds
// =====
// An article feed service: users follow categories, publish articles with
// images and like, dislike or block the articles of others.
//
// Generate the route docs with `go run . -routes`.
//
// Boot the server:
// ----------------
// $ FEEDS_AUTH_SECRET=s3cr3t go run . -config feeds.toml
//
// Client requests:
// ----------------
// $ curl -d '{"firstName":"Ada","email":"ada@example.com","password":"secret1","preferences":["tech"]}' http://localhost:3333/api/auth/signup
// {"message":"User created successfully","data":{"token":"eyJ..."}}
//
// $ curl -H "Authorization: Bearer eyJ..." http://localhost:3333/api/articles
// {"message":"Articles fetched successfully","data":[]}
//
// $ curl -H "Authorization: Bearer eyJ..." -F title=Hi -F description=First -F category=tech -F content=Hello -F images=@a.png -F images=@b.png http://localhost:3333/api/articles
// {"message":"Article created successfully","data":{"id":"...","images":["uploads/...png", ...]}}
//
// $ curl -H "Authorization: Bearer eyJ..." -d '{"action":"like"}' http://localhost:3333/api/articles/<id>/interact
// {"message":"Interaction recorded","data":{"id":"...","isLiked":true,"likeCount":1, ...}}
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/SergeyParamoshkin/feeds/internal/config"
	"github.com/SergeyParamoshkin/feeds/internal/db"
	"github.com/SergeyParamoshkin/feeds/internal/logger"
	"github.com/SergeyParamoshkin/feeds/internal/server"
	"github.com/SergeyParamoshkin/feeds/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/docgen"
	"go.opentelemetry.io/otel/metric/global"
)

const ServiceName = "feeds"

// nolint
func main() {
	var (
		routes   = flag.Bool("routes", getEnvBool("ROUTES", false), "Generate router documentation")
		confPath = flag.String("config", getEnv("CONFIG", ""), "config file")
		addr     = flag.String("addr", getEnv("ADDR", ""), "application address, overrides the config")
		diagAddr = flag.String("diag_addr", getEnv("DIAG_ADDR", ""), "diag address, overrides the config")
	)

	flag.Parse()

	cfg, err := config.Read(*confPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Address = *addr
	}
	if *diagAddr != "" {
		cfg.Server.DiagAddress = *diagAddr
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync() // flushes buffer, if any
	sugar := log.Sugar().With("service", ServiceName)

	exporter, err := telemetry.NewExporter()
	if err != nil {
		sugar.Fatalw("failed to initialize prometheus exporter", "error", err)
	}
	instruments := telemetry.NewInstruments(global.Meter(ServiceName))

	database, err := db.Open(cfg.DB.Driver, cfg.DB.Connect)
	if err != nil {
		sugar.Fatalw("failed to open database", "driver", cfg.DB.Driver, "error", err)
	}
	defer database.Close()

	r, err := server.New(cfg, database, sugar, instruments)
	if err != nil {
		sugar.Fatalw("failed to build router", "error", err)
	}

	// Passing -routes to the program will generate docs for the above
	// router definition.
	if *routes {
		fmt.Println(docgen.MarkdownRoutesDoc(r, docgen.MarkdownOpts{
			ProjectPath: "github.com/SergeyParamoshkin/feeds",
			Intro:       "Routes of the feeds service.",
		}))

		return
	}

	diagRouter := chi.NewRouter()
	diagRouter.Get("/metrics", exporter.ServeHTTP)

	go func() {
		sugar.Infow("diag listening", "addr", cfg.Server.DiagAddress)
		if err := http.ListenAndServe(cfg.Server.DiagAddress, diagRouter); err != nil {
			sugar.Errorw(err.Error())
		}
	}()

	sugar.Infow("listening", "addr", cfg.Server.Address, "db", cfg.DB.Driver)
	if err := http.ListenAndServe(cfg.Server.Address, r); err != nil {
		sugar.Errorw(err.Error())
	}
}

func envKey(name string) string {
	return strings.ToUpper(ServiceName + "_" + name)
}

func getEnv(name, fallback string) string {
	if v, ok := os.LookupEnv(envKey(name)); ok {
		return v
	}

	return fallback
}

func getEnvBool(name string, fallback bool) bool {
	v, ok := os.LookupEnv(envKey(name))
	if !ok {
		return fallback
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}

	return b
}
