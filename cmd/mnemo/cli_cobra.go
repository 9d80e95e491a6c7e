package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dotsetgreg/mnemo/pkg/config"
	"github.com/dotsetgreg/mnemo/pkg/engine"
)

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	var showVersion bool
	var configPath string

	root := &cobra.Command{
		Use:   "mnemo",
		Short: "Event-sourced memory and pattern-recognition engine",
		Long: strings.TrimSpace(`mnemo is the memory core of a conversational assistant.

It keeps an append-only ledger of interaction history, a relevance-ranked
recall index over that history, and a symbol detector that turns free text
into recurring thematic labels.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config JSON")

	root.AddCommand(newConsoleCommand(&configPath))
	root.AddCommand(newStatsCommand(&configPath))
	root.AddCommand(newJournalCommand(&configPath))
	root.AddCommand(newReplayCommand(&configPath))
	root.AddCommand(newVersionCommand())
	return root
}

func openEngine(configPath string) (*engine.Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return engine.New(cfg, logger)
}

func newStatsCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:     "stats <user-id>",
		Short:   "Show indexed memory stats for a user",
		Args:    cobra.ExactArgs(1),
		Example: "  mnemo stats u1",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine(*configPath)
			if err != nil {
				return err
			}
			defer eng.Close()

			st := eng.Stats(args[0])
			fmt.Printf("Total entries: %d\n", st.Total)
			for t, n := range st.CountsByType {
				fmt.Printf("  %-14s %d\n", t, n)
			}
			if len(st.Patterns) > 0 {
				fmt.Printf("Patterns: %s\n", strings.Join(st.Patterns, ", "))
			}
			if !st.MostRecent.IsZero() {
				fmt.Printf("Most recent: %s\n", st.MostRecent.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newJournalCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "journal <user-id>",
		Short: "Show the projected journal read model for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine(*configPath)
			if err != nil {
				return err
			}
			defer eng.Close()

			// The read model is in-process state; rebuild it from the ledger
			// before querying.
			if err := eng.Replay(cmd.Context()); err != nil {
				return err
			}
			view, ok := eng.Journal(args[0])
			if !ok {
				fmt.Println("no journal for user")
				return nil
			}
			fmt.Printf("Entries: %d, cleared sessions: %d\n", view.TotalEntries, view.ClearedSessions)
			for t, n := range view.CountsByType {
				fmt.Printf("  %-14s %d\n", t, n)
			}
			if len(view.Patterns) > 0 {
				fmt.Printf("Patterns: %s\n", strings.Join(view.Patterns, ", "))
			}
			return nil
		},
	}
}

func newReplayCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Rebuild the read model by replaying the full ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine(*configPath)
			if err != nil {
				return err
			}
			defer eng.Close()
			if err := eng.Replay(context.Background()); err != nil {
				return err
			}
			fmt.Println("read model rebuilt")
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build/version metadata",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion()
		},
	}
}
