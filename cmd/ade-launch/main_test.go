package main

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/0xADE/ade-launch/internal/config"
	"github.com/0xADE/ade-launch/internal/executor"
)

var _ = Describe("root command", func() {
	It("should register every subcommand", func() {
		names := []string{}
		for _, c := range newRootCmd().Commands() {
			names = append(names, c.Name())
		}
		Expect(names).To(ContainElements("run", "exec", "list", "import-legacy", "remote", "version"))
	})

	It("should print the version", func() {
		root := newRootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs([]string{"version"})
		Expect(root.Execute()).To(Succeed())
		Expect(out.String()).To(Equal("ade-launch " + version + "\n"))
	})

	It("should require an identifier for run", func() {
		root := newRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs([]string{"run"})
		Expect(root.Execute()).To(HaveOccurred())
	})
})

var _ = Describe("resolveTerminal", func() {
	var cfg *config.Config

	BeforeEach(func() {
		orig, had := os.LookupEnv("ADE_TERMINAL_COMMAND")
		DeferCleanup(func() {
			if had {
				os.Setenv("ADE_TERMINAL_COMMAND", orig)
			} else {
				os.Unsetenv("ADE_TERMINAL_COMMAND")
			}
		})
		os.Setenv("ADE_TERMINAL_COMMAND", "foot -e")

		dir, err := os.MkdirTemp("", "ade-launch-cli-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)

		cfg, err = config.Load(filepath.Join(dir, "launch.rc"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("should prefer the flag", func() {
		Expect(resolveTerminal("kitty --hold -e", cfg).Template).To(Equal("kitty --hold -e"))
	})

	It("should fall back to the configured template", func() {
		t := resolveTerminal("  ", cfg)
		Expect(t.Template).To(Equal("foot -e"))
		Expect(t.Wrap("htop")).To(Equal("foot -e htop"))
	})

	It("should keep the terminal program for the fallback", func() {
		t := resolveTerminal("", cfg)
		Expect(t).To(BeAssignableToTypeOf(executor.Terminal{}))
		Expect(t.Program).To(Equal(cfg.TerminalProgram()))
	})
})
