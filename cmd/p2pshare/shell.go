package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive shell for a running daemon",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("p2pshare interactive shell")
		fmt.Println("Type 'help' for commands.")

		prompt.New(
			func(in string) { shellExecutor(cmd.Context(), in) },
			shellCompleter,
			prompt.OptionPrefix("p2pshare> "),
			prompt.OptionTitle("p2pshare"),
		).Run()
	},
}

func shellExecutor(ctx context.Context, in string) {
	if ctx == nil {
		ctx = context.Background()
	}
	blocks := strings.Fields(strings.TrimSpace(in))
	if len(blocks) == 0 {
		return
	}

	var err error
	switch blocks[0] {
	case "exit", "quit":
		os.Exit(0)
	case "share":
		if len(blocks) < 2 {
			fmt.Println("Usage: share <path>")
			return
		}
		err = runShare(ctx, blocks[1])
	case "scan":
		err = runScan(ctx)
	case "ls":
		err = runLs(ctx)
	case "download":
		if len(blocks) < 2 {
			fmt.Println("Usage: download <name> [dir]")
			return
		}
		dir := ""
		if len(blocks) > 2 {
			dir = blocks[2]
		}
		err = runDownload(ctx, blocks[1], dir)
	case "status":
		err = runStatus(ctx)
	case "help":
		fmt.Println("Available commands:")
		fmt.Println("  share <path>            - Share a local file")
		fmt.Println("  scan                    - Ask peers for their files")
		fmt.Println("  ls                      - List files known from peers")
		fmt.Println("  download <name> [dir]   - Download a file")
		fmt.Println("  status                  - Show transfers in progress")
		fmt.Println("  exit                    - Leave the shell")
	default:
		fmt.Println("Unknown command: " + blocks[0])
	}
	if err != nil {
		fail("%v", err)
	}
}

func shellCompleter(d prompt.Document) []prompt.Suggest {
	s := []prompt.Suggest{
		{Text: "share", Description: "Share a local file"},
		{Text: "scan", Description: "Ask peers for their files"},
		{Text: "ls", Description: "List files known from peers"},
		{Text: "download", Description: "Download a file"},
		{Text: "status", Description: "Show transfers in progress"},
		{Text: "exit", Description: "Leave the shell"},
		{Text: "help", Description: "Show help"},
	}
	return prompt.FilterHasPrefix(s, d.GetWordBeforeCursor(), true)
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
