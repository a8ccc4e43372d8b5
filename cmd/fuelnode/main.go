// Command fuelnode is the node's process boundary: load configuration,
// construct the component graph and run until a shutdown signal or an
// internal fatal error, per SPEC_FULL.md §A.4.
//
// Grounded on cmd/kcn/main.go's app construction (a single cli.App with an
// Action, no subcommand tree needed here since this node has exactly one
// thing to run) and go-ethereum/klaytn's common "construct, Start, block on
// os.Interrupt, Stop" main-loop shape.
package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/urfave/cli.v1"

	"github.com/fuelnet/fuelnode/cmd/utils"
	"github.com/fuelnet/fuelnode/config"
	"github.com/fuelnet/fuelnode/log"
	"github.com/fuelnet/fuelnode/node"
)

var logger = log.NewModuleLogger("cmd/fuelnode")

var app = utils.NewApp("", "The command line interface for a Fuel-family full node")

func init() {
	app.Flags = []cli.Flag{
		utils.ConfigFileFlag,
		utils.DataDirOverrideFlag,
		utils.VerbosityFlag,
		utils.PprofFlag,
		utils.PprofPortFlag,
		utils.MetricsPortFlag,
	}
	app.Action = run
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cliCtx *cli.Context) error {
	log.SetLevel(cliCtx.GlobalString(utils.VerbosityFlag.Name))

	cfg, err := config.Load(cliCtx.GlobalString(utils.ConfigFileFlag.Name))
	if err != nil {
		return err
	}
	if dd := cliCtx.GlobalString(utils.DataDirOverrideFlag.Name); dd != "" {
		cfg.DatabasePath = dd
	}

	if cliCtx.GlobalBool(utils.PprofFlag.Name) {
		startPprof(cliCtx.GlobalInt(utils.PprofPortFlag.Name))
	}

	n, err := node.New(cfg)
	if err != nil {
		return err
	}

	if cfg.Metrics {
		startMetricsServer(n, cliCtx.GlobalInt(utils.MetricsPortFlag.Name))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case fatal := <-n.Fatal:
		cancel()
		_ = n.Stop()
		return fatal
	}

	cancel()
	return n.Stop()
}

// startPprof serves net/http/pprof's handlers in the background; failures
// are logged, not fatal, since profiling is a diagnostic aid only.
func startPprof(port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	logger.Info("pprof listening", "addr", addr)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn("pprof server stopped", "err", err)
		}
	}()
}

func startMetricsServer(n *node.Node, port int) {
	handler := n.Metrics().Handler()
	if handler == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	addr := fmt.Sprintf("0.0.0.0:%d", port)
	logger.Info("metrics listening", "addr", addr)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn("metrics server stopped", "err", err)
		}
	}()
}
