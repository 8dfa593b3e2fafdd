package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var downloadDir string

var shareCmd = &cobra.Command{
	Use:   "share <path>",
	Short: "Share a local file with other peers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShare(cmd.Context(), args[0])
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Ask peers on the network for their shared files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd.Context())
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List files advertised by peers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLs(cmd.Context())
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <name>",
	Short: "Download a file from every peer that has it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDownload(cmd.Context(), args[0], downloadDir)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show transfers in progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd.Context())
	},
}

func runShare(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	if err := client.Share(ctx, abs); err != nil {
		return err
	}
	fmt.Println(colorize(Green, "sharing ") + abs)
	return nil
}

func runScan(ctx context.Context) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	if err := client.Scan(ctx); err != nil {
		return err
	}
	fmt.Println("scan sent, run ls to see the answers")
	return nil
}

func runLs(ctx context.Context) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	files, err := client.Ls(ctx)
	if err != nil {
		return err
	}
	fmt.Print(renderLs(files))
	return nil
}

func runDownload(ctx context.Context, name, dir string) error {
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		dir = abs
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	started, err := client.Download(ctx, name, dir)
	if err != nil {
		return err
	}
	if !started {
		fail("%s: no peer available or already downloading", name)
		return nil
	}
	fmt.Println(colorize(Green, "downloading ") + name)
	return nil
}

func runStatus(ctx context.Context) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	st, err := client.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Print(renderStatus(st))
	return nil
}

func init() {
	rootCmd.AddCommand(shareCmd, scanCmd, lsCmd, downloadCmd, statusCmd)
	downloadCmd.Flags().StringVarP(&downloadDir, "output", "o", "", "directory to save into (defaults to the daemon's working directory)")
}
