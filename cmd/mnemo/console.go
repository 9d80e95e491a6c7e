package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/dotsetgreg/mnemo/pkg/engine"
	"github.com/dotsetgreg/mnemo/pkg/memory"
	"github.com/dotsetgreg/mnemo/pkg/symbols"
)

func newConsoleCommand(configPath *string) *cobra.Command {
	var userID, sessionID string

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Interactive console against the local ledger",
		Long: strings.TrimSpace(`Open an interactive console for one user.

Commands:
  remember <type> <text>   record a memory (type: conversation, insight, ...)
  recall <query>           rank memories against a query
  analyze                  run symbol detection over this console's entries
  stats                    show memory stats
  clear                    purge this console session's memory bucket
  quit`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine(*configPath)
			if err != nil {
				return err
			}
			defer eng.Close()
			return runConsole(cmd.Context(), eng, userID, sessionID)
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "local", "User ID to act as")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "console", "Session ID for this console")
	return cmd
}

func runConsole(ctx context.Context, eng *engine.Engine, userID, sessionID string) error {
	rl, err := readline.New(fmt.Sprintf("mnemo(%s)> ", userID))
	if err != nil {
		return err
	}
	defer rl.Close()

	var pieces []symbols.ContentPiece

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cmdWord, rest, _ := strings.Cut(line, " ")

		switch cmdWord {
		case "quit", "exit":
			return nil
		case "remember":
			typeWord, text, _ := strings.Cut(strings.TrimSpace(rest), " ")
			entry, err := eng.Remember(ctx, strings.TrimSpace(text), memory.EntryType(typeWord),
				memory.Metadata{SessionID: sessionID}, userID)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			pieces = append(pieces, symbols.ContentPiece{Text: entry.Content, Timestamp: entry.Timestamp})
			fmt.Printf("remembered %s (%s)\n", entry.ID[:8], entry.Type)
		case "recall":
			res, err := eng.Recall(memory.RecallContext{
				Query:     strings.TrimSpace(rest),
				UserID:    userID,
				SessionID: sessionID,
			})
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			for i, e := range res.Entries {
				fmt.Printf("%d. [%.2f] (%s) %s\n", i+1, e.Relevance, e.Type, e.Content)
			}
			fmt.Println(res.Summary)
		case "analyze":
			analysis := eng.Analyze(userID, pieces, false)
			for _, s := range analysis.Symbols {
				fmt.Printf("  %-12s x%d  %s/%s\n", s.Label, s.Frequency, s.Element, s.Archetype)
			}
			if analysis.Narrative != "" {
				fmt.Println(analysis.Narrative)
			}
			fmt.Printf("(%s)\n", analysis.Elapsed)
		case "stats":
			st := eng.Stats(userID)
			fmt.Printf("%d entries, patterns: %s\n", st.Total, strings.Join(st.Patterns, ", "))
		case "clear":
			if err := eng.ClearSession(ctx, userID, sessionID); err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Println("session memory cleared")
		default:
			fmt.Println("unknown command; try remember/recall/analyze/stats/clear/quit")
		}
	}
}
