package main

import (
	"context"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cppla/gymchallenge/calendar"
	"github.com/cppla/gymchallenge/config"
	"github.com/cppla/gymchallenge/metrics"
	"github.com/cppla/gymchallenge/models"
	"github.com/cppla/gymchallenge/routes"
	"github.com/cppla/gymchallenge/services"
	"github.com/cppla/gymchallenge/storage"
	"github.com/cppla/gymchallenge/store"
	"github.com/cppla/gymchallenge/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	loc, err := cfg.Location()
	if err != nil {
		utils.Sugar.Fatalf("invalid timezone %q: %v", cfg.Timezone, err)
	}
	cal := calendar.New(loc, time.Now)

	db := config.InitDatabase(&models.User{}, &models.CheckIn{}, &models.ProofFile{})
	checkIns := store.NewCheckIns(db)
	users := store.NewUsers(db)
	proofs := store.NewProofFiles(db)

	rc := utils.GetRedis()
	cache := utils.NewRedisCache(rc, time.Duration(cfg.StatsCacheTTLSec)*time.Second)
	tokens := utils.NewTokenManager(cfg.JWTSecret, utils.DefaultTokenTTL)
	blacklist := utils.NewTokenBlacklist(rc)
	photos := storage.NewLocal(cfg.UploadDir, cfg.UploadBaseURL, cfg.UploadMaxBytes())

	if cfg.MetricsEnabled {
		metrics.MustRegister(prometheus.DefaultRegisterer)
	}

	checkInSvc := services.NewCheckInService(services.CheckInDeps{
		CheckIns: checkIns,
		Users:    users,
		Proofs:   proofs,
		Storage:  photos,
		Calendar: cal,
		Cache:    cache,
		MaxBytes: cfg.UploadMaxBytes(),
		Logger:   utils.Logger,
	})
	statsSvc := services.NewStatsService(services.StatsDeps{
		CheckIns: checkIns,
		Users:    users,
		Calendar: cal,
		Cache:    cache,
		Fanout:   cfg.StatsFanout,
		Logger:   utils.Logger,
	})
	userSvc := services.NewUserService(users, cache, utils.Logger)

	// Replaced proofs are deleted after the retention window
	cleaner := services.NewProofCleaner(proofs, photos,
		time.Duration(cfg.ProofRetentionMin)*time.Minute,
		time.Duration(cfg.ProofCleanIntervalMin)*time.Minute,
		utils.Logger)
	cleaner.Start(context.Background())

	r := routes.SetupRouter(routes.Deps{
		Config:    cfg,
		CheckIns:  checkInSvc,
		Stats:     statsSvc,
		Users:     userSvc,
		Tokens:    tokens,
		Blacklist: blacklist,
		Logger:    utils.Logger,
	})

	utils.Logger.Info("starting server", zap.String("port", cfg.AppPort), zap.String("timezone", loc.String()), zap.Bool("redis", rc != nil))
	if err := utils.GraceServer(":"+cfg.AppPort, r, cleaner.Stop); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
