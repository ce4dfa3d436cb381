// expandd - system-wide text expansion daemon
//
//	expandd run             Run the expansion daemon
//	expandd status          Show daemon status
//	expandd enable          Enable expansion
//	expandd disable         Disable expansion
//	expandd reload          Reload snippet libraries
//	expandd snippets        List active snippets
//	expandd history         Show recent expansions
//	expandd check           Check configuration and platform support
package main

import (
	"flag"
	"fmt"
	"os"

	"expandd/internal/config"
	"expandd/internal/ipc"
)

// Version is set at build time.
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		cmdRun(os.Args[2:])
	case "status":
		cmdStatus(os.Args[2:])
	case "enable":
		cmdSetEnabled(os.Args[2:], true)
	case "disable":
		cmdSetEnabled(os.Args[2:], false)
	case "reload":
		cmdReload(os.Args[2:])
	case "snippets":
		cmdSnippets(os.Args[2:])
	case "history":
		cmdHistory(os.Args[2:])
	case "check":
		cmdCheck(os.Args[2:])
	case "stop":
		cmdStop(os.Args[2:])
	case "version", "-v", "--version":
		fmt.Printf("expandd %s\n", Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`expandd - System-wide text expansion

USAGE:
    expandd <command> [options]

COMMANDS:
    run          Run the expansion daemon in the foreground
    status       Show daemon status
    enable       Enable expansion
    disable      Disable expansion (keystrokes pass through untouched)
    reload       Reload snippet libraries
    snippets     List active snippets
    history      Show recent expansions from the journal
    check        Validate configuration and platform support
    stop         Ask a running daemon to exit
    version      Print the version
    help         Show this help message

WORKFLOW:
    1. expandd check                 # Verify hook and injection support
    2. expandd run                   # Start the daemon
    3. (type a trigger like "btw" anywhere)
    4. expandd history               # See what expanded

SNIPPETS:
    Libraries are TOML, YAML, or JSON files listing trigger/template
    pairs. Edit them while the daemon runs; changes apply on save.

PRIVACY NOTE:
    Typed text is matched in memory against configured triggers and is
    never written to logs or to the journal. The journal records which
    snippet fired and how long the output was, not its content.`)
}

// connect dials the running daemon, resolving the socket path from the
// configuration the same way the daemon does.
func connect(configPath string) (*ipc.Client, error) {
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	cfg, err := config.NewLoader(configPath).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	client := ipc.NewClient(ipc.DefaultClientConfig(cfg.IPC.SocketPath))
	if err := client.Connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func mustConnect(configPath string) *ipc.Client {
	client, err := connect(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Is the daemon running? Start it with: expandd run")
		os.Exit(1)
	}
	return client
}

func configFlag(fs *flag.FlagSet) *string {
	return fs.String("config", "", "Configuration file path")
}

func cmdStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cfgPath := configFlag(fs)
	fs.Parse(args)

	client := mustConnect(*cfgPath)
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	state := "disabled"
	if status.Enabled {
		state = "enabled"
	}

	fmt.Printf("expandd %s (up %s)\n", status.Version, status.Uptime)
	fmt.Printf("  Expansion:        %s\n", state)
	fmt.Printf("  Active snippets:  %d\n", status.ActiveSnippets)
	fmt.Printf("  Expansions:       %d (%d failed)\n", status.Expansions, status.Failures)
	if status.EventsDropped > 0 {
		fmt.Printf("  Events dropped:   %d\n", status.EventsDropped)
	}
	if status.Journal.Total > 0 {
		fmt.Printf("  Journal:          %d entries (%d pasted, %d failed)\n",
			status.Journal.Total, status.Journal.Pasted, status.Journal.Failed)
	}
	for _, p := range status.Problems {
		fmt.Printf("  Problem:          %s\n", p)
	}
}

func cmdSetEnabled(args []string, enabled bool) {
	fs := flag.NewFlagSet("enable", flag.ExitOnError)
	cfgPath := configFlag(fs)
	fs.Parse(args)

	client := mustConnect(*cfgPath)
	defer client.Close()

	if _, err := client.SetEnabled(enabled); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if enabled {
		fmt.Println("Expansion enabled.")
	} else {
		fmt.Println("Expansion disabled. Keystrokes pass through untouched.")
	}
}

func cmdReload(args []string) {
	fs := flag.NewFlagSet("reload", flag.ExitOnError)
	cfgPath := configFlag(fs)
	fs.Parse(args)

	client := mustConnect(*cfgPath)
	defer client.Close()

	resp, err := client.Reload()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Reloaded %d snippets.\n", resp.Snippets)
	if resp.Ambiguous > 0 {
		fmt.Printf("%d triggers excluded as ambiguous.\n", resp.Ambiguous)
	}
	for _, p := range resp.Problems {
		fmt.Printf("Problem: %s\n", p)
	}
}

func cmdSnippets(args []string) {
	fs := flag.NewFlagSet("snippets", flag.ExitOnError)
	cfgPath := configFlag(fs)
	fs.Parse(args)

	client := mustConnect(*cfgPath)
	defer client.Close()

	resp, err := client.ListSnippets()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(resp.Snippets) == 0 {
		fmt.Println("No snippets loaded.")
		return
	}

	fmt.Printf("%-16s %-28s %-12s %s\n", "TRIGGER", "NAME", "CATEGORY", "STATE")
	for _, sn := range resp.Snippets {
		state := "enabled"
		if !sn.Enabled {
			state = "disabled"
		}
		fmt.Printf("%-16s %-28s %-12s %s\n", sn.Trigger, sn.Name, sn.Category, state)
	}
}

func cmdHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	cfgPath := configFlag(fs)
	limit := fs.Int("n", 20, "Number of entries to show")
	trigger := fs.String("trigger", "", "Filter by trigger")
	fs.Parse(args)

	client := mustConnect(*cfgPath)
	defer client.Close()

	resp, err := client.History(ipc.HistoryRequest{Limit: *limit, Trigger: *trigger})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(resp.Entries) == 0 {
		fmt.Println("No expansions recorded.")
		return
	}

	for _, e := range resp.Entries {
		mode := "typed"
		if e.Pasted {
			mode = "pasted"
		}
		line := fmt.Sprintf("%s  %-16s %-28s %4d chars (%s)",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.Trigger, e.SnippetName, e.TextLen, mode)
		if e.Err != "" {
			line += "  FAILED: " + e.Err
		}
		fmt.Println(line)
	}
}

func cmdStop(args []string) {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	cfgPath := configFlag(fs)
	fs.Parse(args)

	client := mustConnect(*cfgPath)
	defer client.Close()

	if err := client.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Daemon stopping.")
}
