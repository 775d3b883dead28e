package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/darisni/darisni-backend/internal/data/db"
	"github.com/darisni/darisni-backend/internal/data/repos/sessions"
	"github.com/darisni/darisni-backend/internal/data/repos/students"
	"github.com/darisni/darisni-backend/internal/data/repos/videos"
	types "github.com/darisni/darisni-backend/internal/domain"
	httpserver "github.com/darisni/darisni-backend/internal/http"
	httpH "github.com/darisni/darisni-backend/internal/http/handlers"
	"github.com/darisni/darisni-backend/internal/platform/logger"
	"github.com/darisni/darisni-backend/internal/platform/media"
	"github.com/darisni/darisni-backend/internal/services"
	"github.com/darisni/darisni-backend/internal/utils"
)

// collectionsFromEnv parses STUDENT_COLLECTIONS ("grade:subject,...") and
// falls back to the default course matrix.
func collectionsFromEnv(log *logger.Logger) []types.CollectionRef {
	raw := utils.GetEnv("STUDENT_COLLECTIONS", "", log)
	if strings.TrimSpace(raw) == "" {
		return types.DefaultCollections
	}
	refs := make([]types.CollectionRef, 0)
	for _, part := range strings.Split(raw, ",") {
		fields := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(fields) != 2 || fields[0] == "" || fields[1] == "" {
			log.Warn("Skipping malformed collection entry", "entry", part)
			continue
		}
		refs = append(refs, types.CollectionRef{
			Grade:   strings.ToLower(fields[0]),
			Subject: strings.ToLower(fields[1]),
		})
	}
	if len(refs) == 0 {
		return types.DefaultCollections
	}
	return refs
}

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	collections := collectionsFromEnv(log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(collections); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	studentRegistry := students.NewRegistry(thePG, log, collections)
	sessionContentRepo := sessions.NewSessionContentRepo(thePG, log)
	videoAssetRepo := videos.NewVideoAssetRepo(thePG, log)

	// Media store
	videoRoot := utils.GetEnv("VIDEO_ROOT", "./data/videos", log)
	mediaStore, err := media.NewDiskStore(log, videoRoot)
	if err != nil {
		log.Error("Could not init media store", "error", err)
		os.Exit(1)
	}

	// View counter: Redis-buffered when configured, direct writes otherwise.
	var viewCounter services.ViewCounter
	redisAddr := utils.GetEnv("REDIS_ADDR", "", log)
	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: utils.GetEnv("REDIS_PASSWORD", "", log),
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Warn("Redis unreachable, falling back to direct view counts", "error", err)
			viewCounter = services.NewDirectViewCounter(log, videoAssetRepo)
		} else {
			viewCounter = services.NewRedisViewCounter(log, rdb, videoAssetRepo)
		}
	} else {
		viewCounter = services.NewDirectViewCounter(log, videoAssetRepo)
	}
	defer viewCounter.Close()

	// Services
	log.Info("Setting up Services from main...")
	identityService := services.NewIdentityService(log, studentRegistry)
	entitlementService := services.NewEntitlementService(log, identityService, studentRegistry, sessionContentRepo)
	catalogService := services.NewCatalogService(log, mediaStore, videoAssetRepo, viewCounter)

	// Handlers
	log.Info("Setting up handlers from main...")
	healthHandler := httpH.NewHealthHandler(log)
	streamHandler := httpH.NewStreamHandler(log, catalogService, mediaStore)
	sessionHandler := httpH.NewSessionHandler(log, entitlementService)
	videoHandler := httpH.NewVideoHandler(log, catalogService)

	// Router
	log.Info("Setting up router from main...")
	server := httpserver.NewServer(httpserver.RouterConfig{
		Log:            log,
		HealthHandler:  healthHandler,
		StreamHandler:  streamHandler,
		SessionHandler: sessionHandler,
		VideoHandler:   videoHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := server.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
