//	@title			Youpai API
//	@version		1.0
//	@description	Backend for youpai — photographer portfolio and booking platform.
//
//	@host		localhost:8000
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/youpai/platform/internal/collection"
	"github.com/youpai/platform/internal/config"
	"github.com/youpai/platform/internal/cos"
	"github.com/youpai/platform/internal/db"
	"github.com/youpai/platform/internal/home"
	"github.com/youpai/platform/internal/image"
	"github.com/youpai/platform/internal/mail"
	appMiddleware "github.com/youpai/platform/internal/middleware"
	"github.com/youpai/platform/internal/photographer"
	"github.com/youpai/platform/internal/theme"
	"github.com/youpai/platform/internal/user"

	_ "github.com/youpai/platform/docs/swagger"
)

func main() {
	cfg := config.Load()

	pool, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}

	transformer, err := image.NewTransformer(cfg.WatermarkText, cfg.WatermarkFont, cfg.WatermarkPtSize)
	if err != nil {
		log.Fatalf("watermark init failed: %v", err)
	}

	creds := cos.Credentials{
		AppID:     cfg.COSAppID,
		Bucket:    cfg.COSBucket,
		SecretID:  cfg.COSSecretID,
		SecretKey: cfg.COSSecretKey,
	}
	store := cos.NewClient(cfg.COSHost, cfg.COSBucket, creds, cfg.SignatureTTL, cfg.UploadTimeout)

	var mailer mail.Sender = mail.LogSender{}
	if cfg.IsProduction() {
		mailer = mail.NewSMTPSender(cfg.MailHost, cfg.MailPort, cfg.MailUsername, cfg.MailPassword, cfg.MailFrom)
	}

	// Wire dependencies: repository → service → handler
	imageRepo := image.NewRepository(pool)
	pipeline := image.NewPipeline(transformer, store, store, imageRepo, cfg.ImageHost)
	imageHandler := image.NewHandler(pipeline)

	userRepo := user.NewRepository(pool)
	userSvc := user.NewService(userRepo, mailer, cfg)
	userHandler := user.NewHandler(userSvc, imageRepo)

	collectionRepo := collection.NewRepository(pool)
	collectionSvc := collection.NewService(collectionRepo, userSvc, rdb, cfg.ImageHost)
	collectionHandler := collection.NewHandler(collectionSvc, imageRepo)

	photographerRepo := photographer.NewRepository(pool, userRepo)
	photographerHandler := photographer.NewHandler(photographerRepo, userSvc)

	homeRepo := home.NewRepository(pool)
	homeHandler := home.NewHandler(homeRepo, userSvc, collectionSvc, imageRepo, cfg.ImageHost)

	themeRepo := theme.NewRepository(pool)
	themeHandler := theme.NewHandler(themeRepo, userSvc, collectionSvc, imageRepo, cfg.ImageHost)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI — available at http://localhost:8000/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	requireAuth := appMiddleware.RequireAuth(cfg.JWTSecret)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Public account endpoints
		r.Post("/register", userHandler.Register)
		r.Post("/login", userHandler.Login)
		r.Post("/user/{id}/confirmation/{token}", userHandler.Confirm)

		// Public discovery
		r.Route("/photographer", func(r chi.Router) {
			r.Get("/", photographerHandler.List)
			r.Get("/count", photographerHandler.Count)
			r.Get("/search", photographerHandler.Search)
			r.Get("/option", photographerHandler.Options)
			r.With(requireAuth, appMiddleware.RequireAdmin).
				Post("/option", photographerHandler.CreateOption)
			r.Get("/{id}", photographerHandler.Get)
			r.Get("/{id}/collection", collectionHandler.ListByPhotographer)
			r.Get("/{id}/collection/count", collectionHandler.CountByPhotographer)
		})

		r.Route("/collection/{id}", func(r chi.Router) {
			r.Get("/", collectionHandler.Get)
			r.Get("/like", collectionHandler.Like)
			r.Delete("/like", collectionHandler.Unlike)
		})

		r.Route("/theme", func(r chi.Router) {
			r.Get("/", themeHandler.List)
			r.Get("/count", themeHandler.Count)
			r.With(requireAuth, appMiddleware.RequireAdmin).Post("/", themeHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", themeHandler.Get)
				r.Get("/collection", themeHandler.ListCollections)
				r.Get("/photographer", themeHandler.ListPhotographers)
				r.Group(func(r chi.Router) {
					r.Use(requireAuth, appMiddleware.RequireAdmin)
					r.Patch("/", themeHandler.Update)
					r.Delete("/", themeHandler.Delete)
					r.Post("/collection", themeHandler.AttachCollection)
					r.Delete("/collection/{collectionID}", themeHandler.DetachCollection)
					r.Post("/photographer", themeHandler.AttachPhotographer)
					r.Delete("/photographer/{photographerID}", themeHandler.DetachPhotographer)
				})
			})
		})

		r.Route("/home", func(r chi.Router) {
			r.Get("/banner", homeHandler.ListBanners)
			r.Get("/photographer", homeHandler.ListPhotographers)
			r.Get("/collection", homeHandler.ListCollections)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth, appMiddleware.RequireAdmin)
				r.Post("/banner", homeHandler.CreateBanner)
				r.Post("/banner/resort", homeHandler.ResortBanners)
				r.Patch("/banner/{id}", homeHandler.UpdateBanner)
				r.Delete("/banner/{id}", homeHandler.DeleteBanner)
				r.Post("/photographer", homeHandler.AddPhotographer)
				r.Post("/photographer/resort", homeHandler.ResortPhotographers)
				r.Delete("/photographer/{id}", homeHandler.RemovePhotographer)
				r.Post("/collection", homeHandler.AddCollection)
				r.Post("/collection/resort", homeHandler.ResortCollections)
				r.Delete("/collection/{id}", homeHandler.RemoveCollection)
			})
		})

		// Authenticated account endpoints
		r.Route("/user", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", userHandler.GetProfile)
			r.Patch("/", userHandler.UpdateProfile)
			r.Put("/review", userHandler.SubmitReview)
			r.Delete("/review", userHandler.CancelReview)
			r.Post("/{id}/confirmation", userHandler.ResendConfirmation)

			r.With(appMiddleware.RequireCurrentStatus(userRepo,
				user.StatusConfirmed, user.StatusReviewed)).
				Post("/image", imageHandler.Upload)

			r.Route("/collection", func(r chi.Router) {
				r.Get("/", collectionHandler.ListOwn)
				r.Post("/", collectionHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", collectionHandler.GetOwn)
					r.Patch("/", collectionHandler.UpdateOwn)
					r.Delete("/", collectionHandler.DeleteOwn)
					r.Post("/works", collectionHandler.AddWork)
					r.Get("/works/{workID}", collectionHandler.GetWork)
					r.Delete("/works/{workID}", collectionHandler.RemoveWork)
				})
			})
		})

		// Admin account management
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth, appMiddleware.RequireAdmin)
			r.Get("/user", userHandler.ListUsers)
			r.Post("/user/activation", userHandler.Activate)
			r.Delete("/user/activation", userHandler.Deactivate)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("server listening on :%s (env=%s)", cfg.Port, cfg.AppEnv)
		log.Printf("swagger UI at http://localhost:%s/swagger/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server stopped")
}
