package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/utrading/utrading-sol-ingest/config"
	"github.com/utrading/utrading-sol-ingest/internal/cache"
	"github.com/utrading/utrading-sol-ingest/internal/cleaner"
	"github.com/utrading/utrading-sol-ingest/internal/dal"
	"github.com/utrading/utrading-sol-ingest/internal/dao"
	"github.com/utrading/utrading-sol-ingest/internal/hotstore"
	"github.com/utrading/utrading-sol-ingest/internal/ingest"
	"github.com/utrading/utrading-sol-ingest/internal/monitor"
	"github.com/utrading/utrading-sol-ingest/internal/nats"
	"github.com/utrading/utrading-sol-ingest/internal/query"
	"github.com/utrading/utrading-sol-ingest/internal/stream"
	"github.com/utrading/utrading-sol-ingest/pkg/logger"
	"github.com/utrading/utrading-sol-ingest/pkg/sigproc"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "cfg.toml", "config file path")
	flag.Parse()

	// 加载配置
	if err := config.Init(configFile); err != nil {
		panic(err)
	}
	cfg := config.Get()

	// 初始化日志
	if err := initLogger(cfg); err != nil {
		panic("init logger failed: " + err.Error())
	}
	defer logger.Close()

	logger.Info().Msg("sol_ingest service starting...")

	// 初始化指标
	monitor.InitMetrics()

	// 初始化主库
	dal.InitMysqlDB(cfg.MySQL)

	// 自动迁移表结构
	dal.AutoMigrate()

	// 初始化 DAO
	dao.InitDAO(dal.MySQL())

	// 打开热存储（进程内，重启后从空库重建）
	hot, err := hotstore.Open(cfg.HotStore.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("open hot store failed")
	}

	// 创建保留期清理器
	dataCleaner := cleaner.NewCleaner(hot, cfg.HotStore.Retention, cfg.HotStore.SweepInterval, cfg.HotStore.MaxRows)
	dataCleaner.Start()

	// 签名去重缓存，用主库近期签名预热
	deduper := cache.NewDedupCache(cfg.Ingest.DedupTTL)
	if err = deduper.Warm(cfg.Ingest.WarmWindow, dao.Trade(), dao.WhaleMovement()); err != nil {
		logger.Warn().Err(err).Msg("failed to warm dedup cache")
	}

	// 初始化 NATS（可选）
	var publisher *nats.Publisher
	if cfg.NATS.Enabled {
		publisher, err = nats.NewPublisher(cfg.NATS.Endpoint)
		if err != nil {
			logger.Fatal().Err(err).Msg("init nats publisher failed")
		}
		defer publisher.Close()
	}

	// 实时推送中心
	hub := stream.NewHub()

	// 双写编排器
	var movementPub ingest.MovementPublisher
	if publisher != nil {
		movementPub = publisher
	}
	processor, err := ingest.NewProcessor(hot, ingest.DAOMaster{}, deduper, hub, movementPub, cfg.Ingest.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("create ingest processor failed")
	}

	// 查询处理器
	queries := query.NewHandler(hot, query.Config{
		DefaultLimit:  cfg.Query.DefaultLimit,
		RangedLimit:   cfg.Query.RangedLimit,
		SyncBatchSize: cfg.Query.SyncBatchSize,
	})

	// HTTP 服务器（webhook 接入 + 读取 API + 健康检查）
	server := ingest.NewServer(cfg.Server, processor, queries, hub.HandleWS, hot, dao.Trade(), dao.WhaleMovement())
	server.Start()

	logger.Info().
		Str("listen_addr", cfg.Server.ListenAddr).
		Dur("retention", cfg.HotStore.Retention).
		Bool("nats", cfg.NATS.Enabled).
		Msg("sol_ingest service started successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 优雅关闭
	sigproc.GracefulShutdown(func(sig os.Signal) {
		logger.Info().Str("signal", sig.String()).Msg("shutting down...")

		// 先停止接收新请求
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Stop(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("stop ingest server failed")
		}

		// 等待在途批次处理完
		processor.Stop()

		// 停止清理器和推送中心
		dataCleaner.Stop()
		hub.Close()

		// 关闭配置重载
		config.Stop()

		// 关闭存储
		hot.Close()
		dal.CloseMySQL()

		logger.Info().Msg("sol_ingest service stopped")
		cancel()
	})

	<-ctx.Done()
}

func initLogger(cfg *config.Config) error {
	return logger.NewBuilder().
		SetMaxSize(cfg.Logger.MaxSize).
		SetMaxBackups(cfg.Logger.MaxBackups).
		SetMaxAge(cfg.Logger.MaxAge).
		SetLevel(cfg.Logger.Level).
		EnableCompression(cfg.Logger.Compress).
		EnableConsoleOutput(cfg.Logger.Console).
		Build()
}
