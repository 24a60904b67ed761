package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookshop/backend/cache"
	"github.com/bookshop/backend/config"
	"github.com/bookshop/backend/handlers"
	"github.com/bookshop/backend/middleware"
	"github.com/bookshop/backend/service"
	"github.com/bookshop/backend/store"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	config.ValidateEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config:", err)
	}

	ctx := context.Background()
	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatal("mongodb:", err)
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			log.Println("mongodb disconnect:", err)
		}
	}()
	if err := db.EnsureIndexes(ctx); err != nil {
		log.Fatal("mongodb indexes:", err)
	}

	sessions, err := cache.NewSessionCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal("redis:", err)
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			log.Println("redis close:", err)
		}
	}()

	var s3Service *service.S3Service
	if cfg.S3Bucket != "" {
		s3Service, err = service.NewS3Service(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey, cfg.S3BaseURL)
		if err != nil {
			log.Fatal("s3:", err)
		}
	} else {
		log.Println("warning: AWS_S3_BUCKET not set; image uploads will fail")
	}

	mailer := service.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPSender)
	authService := &service.AuthService{
		Store:     db,
		Cache:     sessions,
		Mailer:    mailer,
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
	}
	catalogService := &service.CatalogService{Store: db}

	maxBytes := cfg.MaxUploadMB * 1024 * 1024
	authHandler := &handlers.AuthHandler{Auth: authService}
	booksHandler := &handlers.BooksHandler{Catalog: catalogService, S3: s3Service, MaxBytes: maxBytes}
	authorsHandler := &handlers.AuthorsHandler{DB: db, S3: s3Service, MaxBytes: maxBytes}
	categoriesHandler := &handlers.CategoriesHandler{DB: db}
	tagsHandler := &handlers.TagsHandler{DB: db, Catalog: catalogService}
	usersHandler := &handlers.UsersHandler{DB: db, Auth: authService, S3: s3Service, MaxBytes: maxBytes}

	requireAuth := middleware.Auth(cfg.JWTSecret, sessions)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"welcome to the book shop."}`))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/verify", authHandler.Verify)
		r.Post("/resend-otp", authHandler.ResendOTP)
		r.Post("/login", authHandler.Login)
		r.Post("/forget-password", authHandler.ForgetPassword)
		r.Post("/reset-password", authHandler.ResetPassword)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/logout", authHandler.Logout)
		})
	})

	r.Route("/books", func(r chi.Router) {
		r.Get("/all", booksHandler.List)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/my-books", booksHandler.MyBooks)
			r.Post("/create", booksHandler.Create)
		})
		r.Get("/{id}", booksHandler.Get)
	})

	r.Route("/authors", func(r chi.Router) {
		r.Get("/", authorsHandler.List)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", authorsHandler.Create)
		})
	})

	r.Route("/category", func(r chi.Router) {
		r.Get("/", categoriesHandler.List)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", categoriesHandler.Create)
			r.Put("/{id}", categoriesHandler.Update)
			r.Delete("/{id}", categoriesHandler.Delete)
		})
	})

	r.Route("/tags", func(r chi.Router) {
		r.Get("/", tagsHandler.List)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", tagsHandler.Create)
			r.Post("/assign", tagsHandler.Assign)
		})
	})

	r.Route("/user", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", usersHandler.Profile)
		r.Post("/", usersHandler.UpdateProfile)
		r.Put("/password", usersHandler.UpdatePassword)
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Println("server listening on :" + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("shutdown:", err)
	}
}
