package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/0xADE/ade-launch/client/exe"
	"github.com/0xADE/ade-launch/internal/config"
	"github.com/0xADE/ade-launch/internal/entry"
	"github.com/0xADE/ade-launch/internal/executor"
	"github.com/0xADE/ade-launch/internal/history"
	"github.com/0xADE/ade-launch/internal/indexer"
	"github.com/0xADE/ade-launch/internal/runindex"
)

// resolveTerminal picks the terminal invocation: flag, then rc file, then environment.
func resolveTerminal(flag string, cfg *config.Config) executor.Terminal {
	t := executor.Terminal{
		Template: cfg.TerminalCommand(),
		Program:  cfg.TerminalProgram(),
	}
	if strings.TrimSpace(flag) != "" {
		t.Template = flag
	}
	return t
}

// session bundles what a one-shot command needs.
type session struct {
	cfg   *config.Config
	store *history.Store
	exec  *executor.Executor
}

func newSession(opts *rootOptions) (*session, error) {
	if err := config.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	cfg := config.Get()
	store := history.NewStore()
	execOpts := []executor.Option{executor.WithTerminal(resolveTerminal(opts.terminalCommand, cfg))}
	if opts.spawner != nil {
		execOpts = append(execOpts, executor.WithSpawner(opts.spawner))
	}
	return &session{
		cfg:   cfg,
		store: store,
		exec:  executor.New(store, execOpts...),
	}, nil
}

// discover loads history and merges a fresh scan of the search path into it.
func (s *session) discover(ctx context.Context, entries *entry.Map) (*entry.Map, error) {
	idx := indexer.NewIndexer()
	if _, err := idx.Reindex(ctx, s.cfg.Path()); err != nil {
		return nil, fmt.Errorf("failed to scan for applications: %w", err)
	}
	return entry.Merge(entries, idx.Entries()), nil
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <id>",
		Short: "Launch an entry by identifier and count the launch",
		Long: `Launch an entry by its identifier: the full path of an executable or of a
.desktop file. Unknown identifiers trigger a scan of the search path first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(opts)
			if err != nil {
				return err
			}
			entries, err := s.store.Load()
			if err != nil {
				return err
			}
			if _, ok := entries.Get(args[0]); !ok {
				if entries, err = s.discover(cmd.Context(), entries); err != nil {
					return err
				}
			}
			return s.exec.Execute(args[0], entries)
		},
	}
}

func newExecCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <command...>",
		Short: "Run a raw command line detached, without recording it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(opts)
			if err != nil {
				return err
			}
			return s.exec.ExecPretrimmed(strings.Join(args, " "))
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		lang  string
		limit int
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, most used first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(opts)
			if err != nil {
				return err
			}
			entries, err := s.store.Load()
			if err != nil {
				return err
			}
			if all {
				if entries, err = s.discover(cmd.Context(), entries); err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for i, e := range entries.Ranked() {
				if limit > 0 && i >= limit {
					break
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", e.Count, e.DisplayName(lang), e.ID)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "Language for desktop entry names")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many entries (0 = all)")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include discovered entries that were never launched")
	return cmd
}

func newImportLegacyCmd(opts *rootOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "import-legacy",
		Short: "Import run counts from the old ade-exe-ctld run index",
		RunE: func(cmd *cobra.Command, args []string) error {
			ri, err := runindex.Open(path)
			if errors.Is(err, runindex.ErrNoIndex) {
				fmt.Fprintf(cmd.OutOrStdout(), "No run index at %s, nothing to import\n", path)
				return nil
			}
			if err != nil {
				return err
			}
			defer ri.Close()

			counts, err := ri.Counts()
			if err != nil {
				return fmt.Errorf("failed to read run index: %w", err)
			}

			s, err := newSession(opts)
			if err != nil {
				return err
			}
			entries, err := s.store.Load()
			if err != nil {
				return err
			}
			if entries, err = s.discover(cmd.Context(), entries); err != nil {
				return err
			}

			raised := entry.ApplyCounts(entries, counts)
			if err := s.store.Save(entries); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d recorded counts\n", raised, len(counts))
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", runindex.DefaultPath(), "Run index database to import")
	return cmd
}

func newRemoteCmd() *cobra.Command {
	var socket string

	cmd := &cobra.Command{
		Use:   "remote <command> [args...]",
		Short: "Send one protocol command to ade-launchd and print the response",
		Long: `Send one TXT01 command to a running ade-launchd, for example:

  ade-launch remote +filter-name fire
  ade-launch remote run /usr/share/applications/firefox.desktop
  ade-launch remote list`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if socket == "" {
				if err := config.Init(); err != nil {
					return fmt.Errorf("failed to initialize config: %w", err)
				}
				socket = config.Get().UnixSocket()
			}
			client, err := exe.NewClient(socket)
			if err != nil {
				return err
			}
			defer client.Close()

			// run and lang always take a string, even when it looks like a number
			cmdArgs := args[1:]
			if args[0] == "run" || args[0] == "lang" {
				for i, a := range cmdArgs {
					cmdArgs[i] = `"` + strings.TrimPrefix(a, `"`)
				}
			}

			resp, callErr := client.Call(args[0], cmdArgs)
			if resp != nil {
				if _, err := resp.WriteTo(cmd.OutOrStdout()); err != nil {
					return err
				}
			}
			return callErr
		},
	}

	cmd.Flags().StringVar(&socket, "socket", "", "Daemon socket (default from ADE_LAUNCHD_SOCK)")
	return cmd
}
