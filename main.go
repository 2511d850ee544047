// streamdown - A terminal renderer for streaming chat responses.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mhollis/streamdown/internal/config"
	"github.com/mhollis/streamdown/internal/export"
	"github.com/mhollis/streamdown/internal/render"
	"github.com/mhollis/streamdown/internal/session"
	"github.com/mhollis/streamdown/internal/storage"
	"github.com/mhollis/streamdown/internal/stream"
	"github.com/mhollis/streamdown/internal/transport"
	"github.com/mhollis/streamdown/internal/ui/chat"
	"github.com/mhollis/streamdown/internal/util"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "version", "--version", "-v":
			fmt.Printf("streamdown %s (%s, built %s)\n", Version, GitCommit, BuildDate)
			return
		case "sessions":
			if err := handleSessions(args[1:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	if err := runTUI(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`streamdown - terminal renderer for streaming chat responses

Usage:
  streamdown                 Start the chat TUI
  streamdown sessions        List saved sessions
  streamdown sessions show <id>     Print a saved session
  streamdown sessions export <id>   Export a saved session to Markdown
  streamdown sessions delete <id>   Delete a saved session
  streamdown version         Print version information
`)
}

// =============================================================================
// TUI
// =============================================================================

func runTUI() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var store *storage.SQLiteStore
	var assemblerStore session.Store
	if cfg.Storage.Enabled {
		dbPath, err := cfg.DatabasePath()
		if err != nil {
			return err
		}
		store, err = storage.Open(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer store.Close()
		assemblerStore = store
	}

	framing := stream.FramingSSE
	if cfg.Transport.Framing == "json" {
		framing = stream.FramingJSON
	}
	client := transport.NewClient(
		cfg.Transport.Endpoint,
		framing,
		cfg.Transport.Marker,
		transport.WithTimeout(time.Duration(cfg.Transport.TimeoutSecs)*time.Second),
	)

	assembler := session.New(assemblerStore)
	pipeline := render.NewPipeline()

	m := chat.New(cfg, assembler, pipeline, client)
	p := tea.NewProgram(m, tea.WithAltScreen())

	// Live-reload: edits to the config file take effect without a restart.
	if path, err := config.ConfigPath(); err == nil {
		if watcher, err := config.Watch(path); err == nil {
			defer watcher.Close()
			go func() {
				for updated := range watcher.Updates() {
					p.Send(chat.ConfigReloadedMsg{Cfg: updated})
				}
			}()
		}
	}

	_, err = p.Run()
	return err
}

// =============================================================================
// SESSION SUBCOMMANDS
// =============================================================================

func handleSessions(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return err
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if len(args) == 0 {
		return listSessions(ctx, store)
	}

	switch args[0] {
	case "show":
		if len(args) < 2 {
			return fmt.Errorf("usage: streamdown sessions show <id>")
		}
		return showSession(ctx, store, args[1])
	case "export":
		if len(args) < 2 {
			return fmt.Errorf("usage: streamdown sessions export <id>")
		}
		return exportSession(ctx, store, args[1])
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: streamdown sessions delete <id>")
		}
		if err := store.Delete(ctx, args[1]); err != nil {
			return err
		}
		fmt.Println("Deleted.")
		return nil
	default:
		return fmt.Errorf("unknown sessions subcommand %q", args[0])
	}
}

func listSessions(ctx context.Context, store *storage.SQLiteStore) error {
	metas, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("No saved sessions.")
		return nil
	}
	for _, m := range metas {
		// Width-aware padding keeps the columns aligned for CJK titles.
		fmt.Printf("%s  %s  %3d msgs  %s\n",
			m.ID, util.PadWidth(util.TruncateWidth(m.Title, 32), 32),
			m.MessageCount, m.LastUpdated.Format("2006-01-02 15:04"))
		if m.Preview != "" {
			fmt.Printf("    %s\n", m.Preview)
		}
	}
	return nil
}

func showSession(ctx context.Context, store *storage.SQLiteStore, id string) error {
	s, err := store.Load(ctx, id)
	if err != nil {
		return err
	}
	exp := export.NewMarkdownExporter(nil)
	content, err := exp.Export(s)
	if err != nil {
		return err
	}
	fmt.Print(export.Preview(string(content), 100))
	return nil
}

func exportSession(ctx context.Context, store *storage.SQLiteStore, id string) error {
	s, err := store.Load(ctx, id)
	if err != nil {
		return err
	}
	path, err := export.ExportMarkdown(s, nil)
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}
