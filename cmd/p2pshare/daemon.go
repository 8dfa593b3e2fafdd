package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tarun-kavipurapu/p2p-share/daemon"
	"tarun-kavipurapu/p2p-share/pkg/logger"

	"github.com/spf13/cobra"
)

var daemonFlags struct {
	transferPort  int
	discoveryPort int
	tempDir       string
	metricsAddr   string
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the sharing daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("transfer-port") {
			cfg.TransferPort = daemonFlags.transferPort
		}
		if flags.Changed("discovery-port") {
			cfg.DiscoveryPort = daemonFlags.discoveryPort
		}
		if flags.Changed("temp-dir") {
			cfg.TempDir = daemonFlags.tempDir
		}
		if flags.Changed("metrics-addr") {
			cfg.MetricsAddr = daemonFlags.metricsAddr
		}

		d, err := daemon.New(cfg)
		if err != nil {
			return err
		}
		defer d.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("p2pshare daemon: commands on %s, transfers on :%d\n", cfg.ClientAddr, cfg.TransferPort)
		logger.Sugar.Infof("[Daemon] starting")
		if err := d.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Sugar.Infof("[Daemon] stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().IntVar(&daemonFlags.transferPort, "transfer-port", 0, "peer transfer port")
	daemonCmd.Flags().IntVar(&daemonFlags.discoveryPort, "discovery-port", 0, "multicast discovery port")
	daemonCmd.Flags().StringVar(&daemonFlags.tempDir, "temp-dir", "", "directory for chunk files")
	daemonCmd.Flags().StringVar(&daemonFlags.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
}
