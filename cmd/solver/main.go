package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rainlanguage/rain.solver-sub002/internal/chain"
	"github.com/rainlanguage/rain.solver-sub002/internal/config"
	cronrunner "github.com/rainlanguage/rain.solver-sub002/internal/cron"
	"github.com/rainlanguage/rain.solver-sub002/internal/handler"
	"github.com/rainlanguage/rain.solver-sub002/internal/logger"
	"github.com/rainlanguage/rain.solver-sub002/internal/orderbook"
	"github.com/rainlanguage/rain.solver-sub002/internal/router"
	"github.com/rainlanguage/rain.solver-sub002/internal/service"
	"github.com/rainlanguage/rain.solver-sub002/internal/solver"
	"github.com/rainlanguage/rain.solver-sub002/internal/task"
)

func main() {
	cfgPath := os.Getenv("RS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("RS_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if !common.IsHexAddress(cfg.Wallet.Address) {
		log.Fatal("wallet.address is not a valid address", zap.String("address", cfg.Wallet.Address))
	}
	if !common.IsHexAddress(cfg.Round.NativeWrapped) {
		log.Fatal("round.native_wrapped is not a valid address", zap.String("address", cfg.Round.NativeWrapped))
	}

	client, err := ethclient.Dial(cfg.RPC.URL)
	if err != nil {
		log.Fatal("rpc dial failed", zap.Error(err))
	}
	defer client.Close()

	executor := &chain.Executor{Backend: client, Logger: log}
	contracts, err := chain.NewContracts(cfg.Contracts)
	if err != nil {
		log.Fatal("contracts config invalid", zap.Error(err))
	}

	backends, err := router.NewBackends(cfg.Router)
	if err != nil {
		log.Fatal("router config invalid", zap.Error(err))
	}
	routes := &router.Composite{Backends: backends, Logger: log}

	registry := orderbook.NewRegistry()
	compiler := &task.Compiler{Caller: client}

	strategies := []solver.Strategy{
		&solver.RouterStrategy{Router: routes, Contracts: contracts, Compiler: compiler, Executor: executor, Logger: log},
		&solver.IntraOrderbookStrategy{Orders: registry, Balances: executor, Contracts: contracts, Compiler: compiler, Executor: executor, Logger: log},
		&solver.InterOrderbookStrategy{Orders: registry, Contracts: contracts, Compiler: compiler, Executor: executor, Logger: log},
		&solver.RaindexStrategy{Orders: registry, Router: routes, Contracts: contracts, Compiler: compiler, Executor: executor, Logger: log},
	}
	dispatcher, err := solver.NewDispatcher(strategies, cfg.AllowLists, log)
	if err != nil {
		log.Fatal("allow list config invalid", zap.Error(err))
	}

	coverage, err := cfg.Gas.Coverage()
	if err != nil {
		log.Fatal("gas config invalid", zap.Error(err))
	}

	rounds := (&service.RoundService{
		Orders:             registry,
		Chain:              executor,
		Router:             routes,
		Solver:             dispatcher,
		Submitter:          &service.LogSubmitter{Logger: log},
		Logger:             log,
		Sender:             common.HexToAddress(cfg.Wallet.Address),
		NativeWrapped:      common.HexToAddress(cfg.Round.NativeWrapped),
		GasCoveragePct:     coverage,
		GasLimitMultiplier: cfg.Gas.LimitMultiplier,
		TopCandidates:      cfg.Round.TopCandidates,
		Timeout:            cfg.Round.Timeout,
	}).WithHistory(cfg.Round.ReportHistory)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	healthHandler := &handler.HealthHandler{Chain: executor}
	healthHandler.Register(engine)
	roundsHandler := &handler.RoundsHandler{Rounds: rounds}
	roundsHandler.Register(engine)
	ordersHandler := &handler.OrdersHandler{Registry: registry}
	ordersHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(log, ctx)
	err = cronRunner.Add(cfg.Round.Schedule, func(ctx context.Context) {
		if err := rounds.RunOnce(ctx); err != nil {
			log.Warn("solve round failed", zap.Error(err))
		}
	})
	if err != nil {
		log.Fatal("cron register round failed", zap.Error(err))
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	go func() {
		log.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown failed", zap.Error(err))
	}
}
