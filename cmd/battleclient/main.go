package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sectorwars/battleclient/internal/battle"
	"github.com/sectorwars/battleclient/internal/config"
	"github.com/sectorwars/battleclient/internal/core/event"
	coresys "github.com/sectorwars/battleclient/internal/core/system"
	"github.com/sectorwars/battleclient/internal/data"
	"github.com/sectorwars/battleclient/internal/hud"
	gonet "github.com/sectorwars/battleclient/internal/net"
	"github.com/sectorwars/battleclient/internal/net/packet"
	"github.com/sectorwars/battleclient/internal/persist"
	"github.com/sectorwars/battleclient/internal/roster"
	"github.com/sectorwars/battleclient/internal/scripting"
	"github.com/sectorwars/battleclient/internal/sim"
	"github.com/sectorwars/battleclient/internal/system"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string, clientID uint32) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m          sector wars battle client        \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mpilot:\033[0m %s \033[90m(client %d)\033[0m\n\n", name, clientID)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Battle session ────────────────────────────────────────────────

func run() error {
	// 1. Load config
	_ = godotenv.Load()
	cfgPath := "config/client.toml"
	if p := os.Getenv("BATTLECLIENT_CONFIG"); p != "" {
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

	if err := packet.SetTextEncoding(cfg.Network.TextEncoding); err != nil {
		return fmt.Errorf("text encoding: %w", err)
	}

	printBanner(cfg.Client.Name, cfg.Client.ClientID)

	// 3. Load data tables and module scripts
	printSection("data")
	modules, err := data.LoadModuleTable(cfg.Data.ModulesPath)
	if err != nil {
		return fmt.Errorf("module catalog: %w", err)
	}
	printStat("module kinds", modules.Count())
	sectors, err := data.LoadSectorTable(cfg.Data.SectorsPath)
	if err != nil {
		return fmt.Errorf("sectors: %w", err)
	}
	printStat("sectors", sectors.Count())

	scripts, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer scripts.Close()
	printOK("module scripts loaded")
	fmt.Println()

	// 4. Signals: the first one asks for a clean logout, the second aborts
	// whatever is blocking.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := &system.Loop{}
	shutdownCh := make(chan os.Signal, 2)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)
	go func() {
		for sig := range shutdownCh {
			if loop.CloseRequested() {
				log.Warn("second signal, aborting", zap.String("signal", sig.String()))
				cancel()
				return
			}
			log.Info("close requested", zap.String("signal", sig.String()))
			loop.RequestClose()
		}
	}()

	// 5. Journal
	journal, err := persist.Open(ctx, cfg.Journal, log)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if journal != nil {
		defer func() {
			if err := journal.Close(); err != nil {
				log.Warn("journal close", zap.Error(err))
			}
		}()
	}

	// 6. Connect and join
	printSection("battle")
	sess, err := gonet.Dial(ctx, cfg.Network, log)
	if err != nil {
		return err
	}
	defer sess.Close()
	printOK(fmt.Sprintf("connected to %s (%s)", cfg.Network.ServerAddress, cfg.Network.Transport))

	start, err := battle.Join(ctx, sess, battle.JoinRequest{
		ClientID: cfg.Client.ClientID,
		Name:     cfg.Client.Name,
		Token:    cfg.Client.Token,
	}, log)
	if err != nil {
		return fmt.Errorf("join: %w", err)
	}
	ships, err := battle.NewRoster(start)
	if err != nil {
		return fmt.Errorf("join: %w", err)
	}
	printStat("ships in battle", ships.Len())

	// 7. Wire the battle core
	bus := event.NewBus()
	present := hud.New(ships, sectors, cfg.Turn.LockLimit, log)
	present.Subscribe(bus)
	if journal != nil {
		journal.Subscribe(bus)
	}
	sched := battle.NewScheduler(battle.Timing{
		PlanDelay: cfg.Turn.PlanDelay,
		ExitGrace: cfg.Turn.ExitGrace,
	}, battle.Deps{
		Transport:    sess,
		Roster:       ships,
		Simulation:   sim.New(ships, modules, scripts, log),
		Presentation: present,
		Bus:          bus,
		Log:          log,
	})
	if start.ResultsSent {
		if err := sched.AwaitJoinTick(ctx); err != nil {
			return fmt.Errorf("join: %w", err)
		}
	}

	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(bus))
	battleSys := system.NewBattleSystem(ctx, sched, loop, log)
	runner.Register(battleSys)
	runner.Register(system.NewOutputSystem(sess, loop))
	if journal != nil {
		runner.Register(system.NewPersistenceSystem(journal, cfg.Turn.FrameRate))
	}

	// 8. Frame loop
	interval := cfg.Turn.FrameInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	printReady(fmt.Sprintf("frame loop running (%s per frame)", interval))
	fmt.Println()

	for !loop.Done() {
		select {
		case <-ticker.C:
			runner.Tick(interval)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	// Deliver the events of the last frame.
	bus.Flush()

	out, err := loop.Result()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("battle aborted by signal")
			return nil
		}
		return err
	}
	log.Info("left battle",
		zap.Stringer("reason", out.Reason),
		zap.Int("turns", battleSys.Turns()),
		zap.Uint64("frames", runner.Frames()),
		zap.String("destination", destination(ships, sectors)),
	)
	return nil
}

// destination names the sector the player's ship left for.
func destination(r *roster.Roster, sectors *data.SectorTable) string {
	p, ok := r.Player()
	if !ok || !p.Jumping {
		return "none"
	}
	return sectors.Name(p.TargetSector)
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
