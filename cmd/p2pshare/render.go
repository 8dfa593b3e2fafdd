package main

import (
	"fmt"
	"sort"
	"strings"

	"tarun-kavipurapu/p2p-share/pkg/protocol"
)

// ANSI color codes for terminal output
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m"
	Bold   = "\033[1m"
)

func colorize(color, s string) string {
	if noColor {
		return s
	}
	return color + s + Reset
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// renderLs prints one block per peer with the files it advertised.
func renderLs(files map[string][]string) string {
	if len(files) == 0 {
		return colorize(Gray, "no files known, run scan first") + "\n"
	}
	var b strings.Builder
	for _, peer := range sortedKeys(files) {
		fmt.Fprintf(&b, "%s %s\n", colorize(Cyan+Bold, peer), colorize(Gray, fmt.Sprintf("(%d files)", len(files[peer]))))
		for _, name := range files[peer] {
			fmt.Fprintf(&b, "  %s\n", name)
		}
	}
	return b.String()
}

func renderStatus(st protocol.StatusResp) string {
	var b strings.Builder

	b.WriteString(colorize(Bold, "Sharing") + "\n")
	if len(st.Sharing) == 0 {
		b.WriteString(colorize(Gray, "  nothing shared") + "\n")
	}
	for _, path := range sortedKeys(st.Sharing) {
		peers := st.Sharing[path]
		if len(peers) == 0 {
			fmt.Fprintf(&b, "  %s %s\n", path, colorize(Gray, "idle"))
			continue
		}
		fmt.Fprintf(&b, "  %s %s %s\n", path, colorize(Yellow, "->"), colorize(Green, strings.Join(peers, ", ")))
	}

	b.WriteString(colorize(Bold, "Downloading") + "\n")
	if len(st.Downloading) == 0 {
		b.WriteString(colorize(Gray, "  no downloads") + "\n")
	}
	for _, name := range sortedKeys(st.Downloading) {
		fmt.Fprintf(&b, "  %s %s %s\n", name, colorize(Yellow, "<-"), colorize(Cyan, strings.Join(st.Downloading[name], ", ")))
	}
	return b.String()
}
