package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flowboard/internal/board"
	"flowboard/internal/config"
	"flowboard/internal/handler"
	"flowboard/internal/middleware"
	"flowboard/internal/migrations"
	"flowboard/internal/realtime"
	"flowboard/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	Engine   *gin.Engine
	Handler  http.Handler
	DB       *gorm.DB
	Config   *config.Config
	Sessions *board.Sessions
	Hub      *realtime.Hub
}

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Users    handler.UserStore
	Sessions *board.Sessions
	Hub      *realtime.Hub
}

func Init(cfg *config.Config) (*Server, error) {
	if cfg.RunMigrations {
		if err := migrations.Up(cfg.MigrationURL()); err != nil {
			return nil, fmt.Errorf("❌ failed to migrate DB: %w", err)
		}
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("❌ failed to connect to DB: %w", err)
	}
	log.Println("✅ Connected to database")

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	hub := realtime.NewHub(cfg.CORSAllowedOrigins)
	sessions := board.NewSessions(
		repository.NewCollaborator(db),
		board.WithListener(hub.Listener()),
		board.WithLogger(logger),
	)

	r := NewRouter(cfg, Deps{
		Users:    repository.NewUserRepository(db),
		Sessions: sessions,
		Hub:      hub,
	})

	return &Server{
		Engine:   r,
		Handler:  WithCORS(cfg, r),
		DB:       db,
		Config:   cfg,
		Sessions: sessions,
		Hub:      hub,
	}, nil
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	handler.RegisterValidators()
	r := gin.Default()

	userHandler := handler.NewUserHandler(deps.Users, cfg.JWTSecret, cfg.JWTExpiry)
	workflowHandler := handler.NewWorkflowHandler(deps.Sessions)
	boardHandler := handler.NewBoardHandler(deps.Sessions)
	wsHandler := handler.NewWSHandler(deps.Hub)

	// Public routes
	r.POST("/register", userHandler.Register)
	r.POST("/login", userHandler.Login)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/ws", middleware.QueryTokenAuth(cfg.JWTSecret), wsHandler.Connect)

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	{
		workflowHandler.Register(authorized)
		boardHandler.Register(authorized)
	}
	return r
}

// WithCORS wraps h with the configured cross-origin policy.
func WithCORS(cfg *config.Config, h http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(h)
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Handler,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.Hub.Run(gctx)
	})
	g.Go(func() error {
		log.Printf("🚀 Server running on port %s\n", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("🛑 Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := s.Sessions.Drain(shutdownCtx); err != nil {
			return fmt.Errorf("drain board writes: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("❌ Server stopped with error: %s", err)
	}
	log.Println("✅ Server exited properly")
}
