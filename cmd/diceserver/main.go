// Package main provides the dice server: a Telnet line server and the
// roll.v1.DiceService gRPC service sharing one evaluator.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/cory-johannsen/roll/internal/config"
	"github.com/cory-johannsen/roll/internal/dice"
	"github.com/cory-johannsen/roll/internal/diceserver"
	"github.com/cory-johannsen/roll/internal/frontend/handlers"
	"github.com/cory-johannsen/roll/internal/frontend/telnet"
	"github.com/cory-johannsen/roll/internal/observability"
	"github.com/cory-johannsen/roll/internal/scripting"
	"github.com/cory-johannsen/roll/internal/server"
)

func main() {
	start := time.Now()

	configPath := pflag.StringP("config", "c", "configs/dev.yaml", "path to configuration file")
	pflag.String("macros", "", "directory of .lua macro files (overrides scripting.macro_dir)")
	pflag.Parse()

	v, err := config.New(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if err := v.BindPFlag("scripting.macro_dir", pflag.Lookup("macros")); err != nil {
		log.Fatalf("binding flags: %v", err)
	}
	cfg, err := config.LoadFromViper(v)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("initializing tracing", zap.Error(err))
	}

	logger.Info("starting dice server",
		zap.String("telnet_addr", cfg.Telnet.Addr()),
		zap.String("grpc_addr", cfg.GRPC.Addr()),
		zap.Int("max_dice", cfg.Dice.MaxDice),
		zap.Bool("tracing", cfg.Tracing.Endpoint != ""),
	)

	eval := dice.NewLoggedEvaluator(
		dice.NewEvaluator(dice.NewCryptoSource(),
			dice.WithLimits(cfg.Dice.Limits()),
			dice.WithDefaultExpression(cfg.Dice.DefaultExpression),
		),
		logger,
	)

	var macros *scripting.Manager
	if cfg.Scripting.MacroDir != "" {
		macros = scripting.NewManager(eval, logger, cfg.Scripting.InstructionLimit)
		if err := macros.LoadMacros(cfg.Scripting.MacroDir); err != nil {
			logger.Fatal("loading macros", zap.String("dir", cfg.Scripting.MacroDir), zap.Error(err))
		}
	}

	acceptor := telnet.NewAcceptor(cfg.Telnet,
		handlers.NewDiceHandler(eval, macros, logger),
		logger,
		telnet.WithMaxLineLength(cfg.Dice.MaxInputLength),
	)
	grpcServer := diceserver.NewServer(cfg.GRPC, diceserver.NewService(eval, logger), logger)

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("telnet", acceptor)
	lifecycle.Add("grpc", grpcServer)
	lifecycle.OnShutdown("tracing", server.Hook(shutdownTracing))
	if macros != nil {
		lifecycle.OnShutdown("macros", func(context.Context) error {
			macros.Close()
			return nil
		})
	}

	logger.Info("dice server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("telnet_addr", fmt.Sprintf("%s:%d", cfg.Telnet.Host, cfg.Telnet.Port)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
