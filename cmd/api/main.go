package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"encrypted-quest-backend/internal/config"
	"encrypted-quest-backend/internal/handlers"
	"encrypted-quest-backend/internal/keys"
	"encrypted-quest-backend/internal/middleware"
	"encrypted-quest-backend/internal/services"
)

const devSeed = "encrypted-quest-development-seed"

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := cfg.NewLogger()

	seed := []byte(cfg.CoprocessorSeed)
	if len(seed) == 0 {
		log.Warn("COPROCESSOR_SEED not set, using the development seed")
		seed = []byte(devSeed)
	}

	deployer, err := loadDeployer(cfg, seed)
	if err != nil {
		log.Fatalf("Failed to load deployer key: %v", err)
	}

	store, err := services.NewStore(cfg, log)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	engine, err := services.NewQuestEngine(ctx, store, services.EngineConfig{
		Seed:     seed,
		ChainID:  cfg.ChainID,
		Deployer: deployer,
		Logger:   log,
	})
	if err != nil {
		log.Fatalf("Failed to start quest engine: %v", err)
	}

	jwtService, err := services.NewJWTService(cfg)
	if err != nil {
		log.Fatalf("Failed to set up JWT: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, tokens will not survive a restart")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Engine:      engine,
		Auth:        services.NewAuthService(store, jwtService, log),
		JWT:         jwtService,
		RateLimiter: middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Logger:      log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		d := engine.Deployment()
		log.WithFields(logrus.Fields{
			"port":      cfg.Port,
			"task_game": d.TaskGame.Hex(),
			"coin":      d.Coin.Hex(),
			"chain_id":  d.ChainID,
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
}

// loadDeployer uses DEPLOYER_KEY when set and otherwise derives a key from
// the coprocessor seed so development restarts reuse one deployment.
func loadDeployer(cfg *config.Config, seed []byte) (*keys.Signer, error) {
	if cfg.DeployerKey != "" {
		return keys.SignerFromHex(cfg.DeployerKey)
	}
	return keys.DeriveSigner(seed, "deployer")
}
