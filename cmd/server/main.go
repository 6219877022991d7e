// Command server runs the movie platform HTTP API: the movie catalog, the
// rating aggregator, comments, messages, and both identity systems behind a
// single bearer-token gate.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/accounts"
	"github.com/example/movie-platform/internal/comments"
	"github.com/example/movie-platform/internal/messages"
	"github.com/example/movie-platform/internal/movies"
	"github.com/example/movie-platform/internal/platform/analytics"
	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/cache"
	"github.com/example/movie-platform/internal/platform/config"
	"github.com/example/movie-platform/internal/platform/db"
	"github.com/example/movie-platform/internal/platform/httpserver"
	"github.com/example/movie-platform/internal/platform/logging"
	"github.com/example/movie-platform/internal/platform/natsconn"
	"github.com/example/movie-platform/internal/platform/run"
	"github.com/example/movie-platform/internal/ratings"
	"github.com/example/movie-platform/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("config:", err)
		run.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Println("logging:", err)
		run.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	runner := run.New(log)
	run.Exit(runner.WithSignals(func(ctx context.Context) error {
		return serve(ctx, cfg, log)
	}))
}

type stores struct {
	movies   movies.Store
	accounts accounts.Store
	ratings  ratings.Store
	comments comments.Store
	messages messages.Store
	users    users.Store

	pool  *pgxpool.Pool
	mongo *mongo.Database
}

func serve(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	st, cleanup, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	redisCache, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, log)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer func() { _ = redisCache.Close() }()

	events, closeNATS, err := openAnalytics(cfg, log)
	if err != nil {
		return err
	}
	defer closeNATS()

	verifier := auth.Verifier{Secret: []byte(cfg.JWTSecret)}
	issuer := auth.Issuer{Secret: []byte(cfg.JWTSecret), TTL: cfg.JWTTTL}

	aggregator := ratings.NewAggregator(st.movies, st.ratings, log, events)
	userHandlers := users.NewHandlers(st.users, issuer, log, events)
	accountHandlers := accounts.NewHandlers(st.accounts, issuer, log, events)
	messageHandlers := messages.NewHandlers(st.messages, log, events)

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		ReadyFunc: func() error { return ready(st) },
		Logger:    log,
	})

	// Public surface.
	r.Post("/auth/signup", userHandlers.Signup)
	r.Post("/auth/signin", userHandlers.Signin)
	r.Post("/users/register", accountHandlers.Register)
	r.Post("/users/login", accountHandlers.Login)
	r.Get("/movies", movies.ListMovies(st.movies))
	r.Get("/movies/top", movies.TopRatedMovies(st.movies, redisCache))
	r.Get("/movies/{id}", movies.GetMovie(st.movies))
	r.Get("/comments/{movieId}", comments.ListComments(st.comments, st.movies))

	// Everything else sits behind the credential gate.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))

		r.Get("/auth/me", userHandlers.Me)
		r.Post("/auth/logout", userHandlers.Logout)

		r.Get("/movies/seen", movies.SeenMovies(st.movies))
		r.Post("/movies", movies.CreateMovie(st.movies, redisCache))
		r.Put("/movies/{id}", movies.UpdateMovie(st.movies, redisCache))
		r.Delete("/movies/{id}", movies.DeleteMovie(st.movies, redisCache))

		r.Post("/ratings/{movieId}", ratings.SubmitRating(aggregator))
		r.Post("/comments/{movieId}", comments.AddComment(st.comments, st.movies, log, events))

		r.Get("/messages", messageHandlers.List)
		r.Post("/messages", messageHandlers.Create)
		r.Get("/messages/{id}", messageHandlers.Get)
		r.Put("/messages/{id}", messageHandlers.Rename)
		r.Delete("/messages/{id}", messageHandlers.Delete)

		r.Put("/profile/password", accountHandlers.ChangePassword)
	})

	srv := httpserver.New(httpserver.Options{
		Addr:        cfg.HTTP.Addr,
		ServiceName: cfg.ServiceName,
		Logger:      log,
		Router:      r,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(log) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// openStores selects persistent backends when configured and falls back to
// in-memory stores in development. Production refuses to run on fallbacks.
func openStores(ctx context.Context, cfg config.Config, log *zap.Logger) (*stores, func(), error) {
	st := &stores{}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if cfg.PostgresURL != "" {
		pool, err := db.OpenPostgres(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		cleanups = append(cleanups, pool.Close)
		st.pool = pool
		st.movies = movies.NewPostgresStore(pool)
		st.accounts = accounts.NewPostgresStore(pool)
	} else {
		if cfg.IsProduction() {
			cleanup()
			return nil, nil, fmt.Errorf("DATABASE_URL is required in production")
		}
		log.Warn("no DATABASE_URL, movies and accounts use in-memory stores")
		st.movies = movies.NewMemoryStore()
		st.accounts = accounts.NewMemoryStore()
	}

	if cfg.MongoURI != "" {
		mdb, disconnect, err := db.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("mongo: %w", err)
		}
		cleanups = append(cleanups, func() { _ = disconnect(context.Background()) })
		st.mongo = mdb

		ratingStore := ratings.NewMongoStore(mdb)
		commentStore := comments.NewMongoStore(mdb)
		userStore := users.NewMongoStore(mdb)
		for name, ensure := range map[string]func(context.Context) error{
			"ratings":  ratingStore.EnsureIndexes,
			"comments": commentStore.EnsureIndexes,
			"users":    userStore.EnsureIndexes,
		} {
			if err := ensure(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("ensure %s indexes: %w", name, err)
			}
		}
		st.ratings = ratingStore
		st.comments = commentStore
		st.users = userStore
		st.messages = messages.NewMongoStore(mdb)
	} else {
		if cfg.IsProduction() {
			cleanup()
			return nil, nil, fmt.Errorf("MONGO_URI is required in production")
		}
		log.Warn("no MONGO_URI, document stores use in-memory fallbacks")
		st.ratings = ratings.NewMemoryStore()
		st.comments = comments.NewMemoryStore()
		st.users = users.NewMemoryStore()
		st.messages = messages.NewMemoryStore()
	}

	return st, cleanup, nil
}

// openAnalytics connects to NATS JetStream when configured. Absence of NATS
// is not an error; events become no-ops.
func openAnalytics(cfg config.Config, log *zap.Logger) (*analytics.Publisher, func(), error) {
	if cfg.NATSURL == "" {
		log.Warn("no NATS_URL, analytics events disabled")
		return analytics.New(nil, log), func() {}, nil
	}
	nc, err := natsconn.Connect(natsconn.Options{URL: cfg.NATSURL})
	if err != nil {
		return nil, nil, fmt.Errorf("nats: %w", err)
	}
	js, err := nc.JetStream(nats.PublishAsyncMaxPending(256))
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}
	return analytics.New(js, log), nc.Close, nil
}

// ready backs /readyz: both configured backends must answer a ping.
func ready(st *stores) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if st.pool != nil {
		if err := st.pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if st.mongo != nil {
		if err := st.mongo.Client().Ping(ctx, nil); err != nil {
			return fmt.Errorf("mongo: %w", err)
		}
	}
	return nil
}
