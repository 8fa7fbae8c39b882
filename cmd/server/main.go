package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"cipherchat/internal/chat"
	"cipherchat/internal/config"
	"cipherchat/internal/crypto"
	"cipherchat/internal/friend"
	"cipherchat/internal/middleware"
	"cipherchat/internal/store/sqlstore"
	"cipherchat/internal/user"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	st, err := sqlstore.New(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("connecting to database (%s): %v", cfg.DBDriver, err)
	}
	log.Printf("connected to %s database", cfg.DBDriver)

	codec, err := crypto.NewCodec(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("codec: %v", err)
	}

	hub := chat.NewHub()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("connecting to redis: %v", err)
		}
		relay := chat.NewRelay(rdb)
		hub.SetRelay(relay)
		go relay.Run(context.Background(), hub)
		log.Println("relay enabled via", cfg.RedisAddr)
	}
	go hub.Run()

	userService := user.NewService(st, cfg.JWTSecret, cfg.TokenTTL)
	userHandler := user.NewHandler(userService)

	friendHandler := friend.NewHandler(friend.NewService(st))

	messages := chat.NewMessageService(st, codec, hub)
	chatHandler := chat.NewHandler(hub, messages)

	authMiddleware := middleware.NewAuthMiddleware(userService)

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.New(cfg.CorsOptions).Handler)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/api/register", userHandler.Register)
	r.Post("/api/login", userHandler.Login)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)

		r.Get("/api/users/search", userHandler.SearchUsers)

		r.Post("/api/friends/add", friendHandler.AddFriend)
		r.Get("/api/friends", friendHandler.ListFriends)

		r.Post("/api/messages", chatHandler.PostMessage)
		r.Get("/api/messages", chatHandler.GetHistory)
		r.Delete("/api/messages", chatHandler.ClearChat)

		r.Get("/ws", chatHandler.ServeWs)
	})

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
		// ReadTimeout would kill long-lived websockets; bound the
		// header read and idle keep-alives instead.
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("server starting on %s", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
