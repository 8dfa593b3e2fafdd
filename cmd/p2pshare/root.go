package main

import (
	"fmt"
	"os"

	"tarun-kavipurapu/p2p-share/pkg/config"
	"tarun-kavipurapu/p2p-share/pkg/control"
	"tarun-kavipurapu/p2p-share/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	clientAddr string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "p2pshare",
	Short: "Serverless P2P file sharing",
	Long: `p2pshare runs a daemon that finds other daemons on the local network over
multicast and downloads files from several of them in parallel chunks. The
other subcommands talk to a running daemon.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logLevel != "" {
			return logger.SetLevel(logLevel)
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Sugar.Error(err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the flags shared by every command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if clientAddr != "" {
		cfg.ClientAddr = clientAddr
	}
	return cfg, nil
}

func newClient() (*control.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return control.NewClient(cfg.ClientAddr), nil
}

func fail(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(Red, fmt.Sprintf(format, args...)))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&clientAddr, "addr", "", "address of the daemon's command channel")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}
