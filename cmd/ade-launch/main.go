package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xADE/ade-launch/internal/executor"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	verbose         bool
	terminalCommand string
	spawner         executor.Spawner // nil launches detached processes
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&rootOptions{})
}

func newRootCmdWith(opts *rootOptions) *cobra.Command {

	rootCmd := &cobra.Command{
		Use:   "ade-launch",
		Short: "Launch applications and keep usage history",
		Long: `ade-launch starts executables and desktop applications detached from the
calling shell and counts every launch in ~/.cache/ade-launch/history.toml.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				log.SetOutput(cmd.ErrOrStderr())
				return
			}
			log.SetOutput(io.Discard)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log what is being launched")
	rootCmd.PersistentFlags().StringVar(&opts.terminalCommand, "terminal-command", "",
		"Terminal invocation used for terminal apps, e.g. \"kitty --hold -e\" (overrides config)")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newExecCmd(opts),
		newListCmd(opts),
		newImportLegacyCmd(opts),
		newRemoteCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ade-launch %s\n", version)
		},
	}
}
