package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/l1jgo/battlesim/internal/config"
	"github.com/l1jgo/battlesim/internal/core/ecs"
	"github.com/l1jgo/battlesim/internal/data"
	gonet "github.com/l1jgo/battlesim/internal/net"
	"github.com/l1jgo/battlesim/internal/observability"
	"github.com/l1jgo/battlesim/internal/persist"
	"github.com/l1jgo/battlesim/internal/scripting"
	"github.com/l1jgo/battlesim/internal/system"
	"github.com/l1jgo/battlesim/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// feedInputsPerSec caps input frames per subscriber.
const feedInputsPerSec = 20

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "config/battlesim.toml"
	if p := os.Getenv("BATTLESIM_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.World.Backend)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, os.Stdout, log)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	// 3. Load data tables
	printSection("資料載入")
	units, err := data.LoadUnitTable(cfg.Data.UnitList)
	if err != nil {
		return fmt.Errorf("unit table: %w", err)
	}
	printStat("單位模板", units.Count())

	buffs, err := data.LoadBuffTable(cfg.Data.BuffList)
	if err != nil {
		return fmt.Errorf("buff table: %w", err)
	}
	printStat("增益模板", buffs.Count())

	spawns, err := data.LoadSpawnList(cfg.Data.SpawnList)
	if err != nil {
		return fmt.Errorf("spawn list: %w", err)
	}
	printStat("生成項目", len(spawns))

	var formula system.DamageFormula
	if cfg.Scripting.Dir != "" {
		engine, err := scripting.NewEngine(cfg.Scripting.Dir, system.StandardFormula{SkillFactor: cfg.Combat.SkillFactor}, log)
		if err != nil {
			return fmt.Errorf("lua engine: %w", err)
		}
		defer engine.Close()
		if engine.HasFunc("calc_damage") {
			formula = engine
			printOK("Lua 傷害公式已載入")
		}
	}
	fmt.Println()

	// 4. Build the world
	printSection("世界")
	w := world.New(world.Options{
		Logger:  log.Named("world"),
		Units:   units,
		Buffs:   buffs,
		Formula: formula,
		Context: ctx,
	})
	if err := w.Initialize(cfg); err != nil {
		return fmt.Errorf("world: %w", err)
	}
	defer w.Shutdown()

	ids, err := w.SpawnScenario(spawns)
	if err != nil {
		return fmt.Errorf("spawn scenario: %w", err)
	}
	printStat("初始實體", len(ids))
	printStat("AI 單位", w.AI().Len())
	fmt.Println()

	// 5. Metrics
	var collector *observability.BattleCollector
	if cfg.Metrics.Enabled {
		collector, err = observability.NewBattleCollector(nil)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		collector.Attach(w.Events(), func(t uint8) string { return world.ResultType(t).String() })

		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		metricsSrv := &http.Server{Addr: cfg.Metrics.BindAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics 服務中止", zap.Error(err))
			}
		}()
		defer metricsSrv.Close()
	}

	// 6. Battle archive
	var arch *archiver
	if cfg.Database.Enabled {
		printSection("資料庫")
		dbCtx, dbCancel := context.WithTimeout(ctx, 30*time.Second)
		defer dbCancel()

		db, err := persist.NewDB(dbCtx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL 連線成功")

		applied, err := db.Migrate(dbCtx)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK(fmt.Sprintf("資料庫遷移完成 (%d)", applied))
		fmt.Println()

		arch = newArchiver(persist.NewBattleRepo(db), cfg.World, log.Named("archive"))
		arch.attach(w)
		defer arch.wait()
	}

	// 7. Snapshot feed
	var hub *gonet.Hub
	if cfg.Feed.Enabled {
		feedSrv, err := gonet.NewServer(cfg.Feed.BindAddress, 16, cfg.Feed.QueueSize, feedInputsPerSec, log.Named("feed"))
		if err != nil {
			return fmt.Errorf("feed: %w", err)
		}
		go feedSrv.Serve()
		defer feedSrv.Shutdown()
		hub = gonet.NewHub(feedSrv, log.Named("feed"))
		defer hub.Close()
	}

	// 8. Start tick loop
	ticker := time.NewTicker(cfg.World.TickRate)
	defer ticker.Stop()

	printSection("伺服器就緒")
	if cfg.Metrics.Enabled {
		printReady(fmt.Sprintf("metrics 位址 http://%s/metrics", cfg.Metrics.BindAddress))
	}
	if hub != nil {
		printReady(fmt.Sprintf("feed 位址 ws://%s/feed", cfg.Feed.BindAddress))
	}
	printReady(fmt.Sprintf("模擬迴圈啟動 (tick: %s)", cfg.World.TickRate))
	fmt.Println()

	var (
		tick     uint64
		snapBuf  []ecs.Record
		reported bool
	)
	for {
		select {
		case <-ticker.C:
			if hub != nil {
				hub.Poll()
				hub.DrainInputs(func(sessionID uint64, frame []byte) {
					in, err := gonet.DecodeInput(frame)
					if err != nil {
						log.Debug("bad feed input", zap.Uint64("session", sessionID), zap.Error(err))
						return
					}
					w.HandleInput(in)
				})
			}

			start := time.Now()
			w.Tick(cfg.World.TickRate)
			collector.ObserveTick(time.Since(start), w.EntityCount())
			tick++

			if hub != nil && hub.Len() > 0 && cfg.Feed.SnapshotEvery > 0 && tick%uint64(cfg.Feed.SnapshotEvery) == 0 {
				snapBuf = w.AppendEntities(snapBuf[:0])
				frame, err := gonet.EncodeSnapshot(gonet.Snapshot{
					Tick:     tick,
					GameTime: w.GetGameTime(),
					Result:   w.GetBattleResult(),
					Entities: snapBuf,
				})
				if err != nil {
					log.Error("snapshot 編碼失敗", zap.Error(err))
				} else {
					hub.Broadcast(frame)
				}
			}

			if w.IsBattleEnded() && !reported {
				reported = true
				res := w.GetBattleResult()
				printSection("戰鬥結束")
				printReady(fmt.Sprintf("結果 %s  分數 %d  擊殺 %d  陣亡 %d  (%.1fs)",
					res.Type, res.Score, res.KillCount, res.DeathCount, res.DurationSeconds))
			}

		case <-ctx.Done():
			log.Info("收到關閉信號")
			log.Info("伺服器已停止")
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
