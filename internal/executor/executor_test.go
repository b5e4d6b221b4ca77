package executor

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/0xADE/ade-launch/internal/entry"
)

type saveCall struct {
	keys   []string
	counts map[string]uint64
}

type fakeSaver struct {
	calls []saveCall
	err   error
}

func (f *fakeSaver) Save(entries *entry.Map) error {
	call := saveCall{keys: entries.Keys(), counts: map[string]uint64{}}
	for _, e := range entries.Entries() {
		call.counts[e.ID] = e.Count
	}
	f.calls = append(f.calls, call)
	return f.err
}

type fakeSpawner struct {
	commands []string
	err      error
}

func (f *fakeSpawner) Spawn(command string) error {
	if f.err != nil {
		return f.err
	}
	f.commands = append(f.commands, command)
	return nil
}

var _ = Describe("Executor", func() {
	var (
		saver   *fakeSaver
		spawner *fakeSpawner
		exe     *Executor
		entries *entry.Map
	)

	BeforeEach(func() {
		saver = &fakeSaver{}
		spawner = &fakeSpawner{}
		exe = New(saver, WithSpawner(spawner))

		entries = entry.NewMap()
		entries.Set(&entry.Entry{ID: "/usr/bin/ls", Exec: "  ls -la  ", Count: 2})
		entries.Set(&entry.Entry{ID: "/apps/vim.desktop", Exec: "vim %f", IsDesktop: true})
		entries.Set(&entry.Entry{ID: "/apps/htop.desktop", Exec: " htop --tree %U ", IsDesktop: true, Terminal: true})
		entries.Set(&entry.Entry{ID: "/usr/bin/printf", Exec: "printf %s", Count: 1})
	})

	Describe("Execute", func() {
		It("should run bare commands trimmed and verbatim", func() {
			Expect(exe.Execute("/usr/bin/ls", entries)).To(Succeed())
			Expect(spawner.commands).To(Equal([]string{"ls -la"}))
		})

		It("should not strip field codes from bare commands", func() {
			Expect(exe.Execute("/usr/bin/printf", entries)).To(Succeed())
			Expect(spawner.commands).To(Equal([]string{"printf %s"}))
		})

		It("should strip field codes from desktop apps", func() {
			Expect(exe.Execute("/apps/vim.desktop", entries)).To(Succeed())
			Expect(spawner.commands).To(Equal([]string{"vim"}))
		})

		It("should wrap terminal apps in the default terminal", func() {
			Expect(exe.Execute("/apps/htop.desktop", entries)).To(Succeed())
			Expect(spawner.commands).To(Equal([]string{"alacritty -e 'htop --tree'"}))
		})

		It("should wrap terminal apps with the configured template", func() {
			exe = exe.WithTerminal(Terminal{Template: "kitty --hold -e", Program: "xterm"})
			Expect(exe.Execute("/apps/htop.desktop", entries)).To(Succeed())
			Expect(spawner.commands).To(Equal([]string{"kitty --hold -e 'htop --tree'"}))
		})

		It("should increment the count by exactly one", func() {
			Expect(exe.Execute("/usr/bin/ls", entries)).To(Succeed())
			e, _ := entries.Get("/usr/bin/ls")
			Expect(e.Count).To(Equal(uint64(3)))

			Expect(exe.Execute("/usr/bin/ls", entries)).To(Succeed())
			Expect(e.Count).To(Equal(uint64(4)))
		})

		It("should save the whole map once with the incremented entry", func() {
			Expect(exe.Execute("/apps/vim.desktop", entries)).To(Succeed())
			Expect(saver.calls).To(HaveLen(1))
			Expect(saver.calls[0].keys).To(Equal(entries.Keys()))
			Expect(saver.calls[0].counts).To(HaveKeyWithValue("/apps/vim.desktop", uint64(1)))
			Expect(saver.calls[0].counts).To(HaveKeyWithValue("/usr/bin/ls", uint64(2)))
		})

		Context("when the identifier is missing", func() {
			It("should fail with ErrNotFound and touch nothing", func() {
				err := exe.Execute("/usr/bin/missing", entries)
				Expect(err).To(MatchError(ErrNotFound))
				Expect(entries.Len()).To(Equal(4))
				Expect(spawner.commands).To(BeEmpty())
				Expect(saver.calls).To(BeEmpty())

				e, _ := entries.Get("/usr/bin/ls")
				Expect(e.Count).To(Equal(uint64(2)))
			})
		})

		Context("when the spawn fails", func() {
			BeforeEach(func() {
				spawner.err = errors.New("resource exhausted")
			})

			It("should fail with ErrSpawn and not save", func() {
				err := exe.Execute("/usr/bin/ls", entries)
				Expect(err).To(MatchError(ErrSpawn))
				Expect(err.Error()).To(ContainSubstring("resource exhausted"))
				Expect(saver.calls).To(BeEmpty())
			})
		})

		Context("when the terminal template cannot be parsed", func() {
			BeforeEach(func() {
				exe = exe.WithTerminal(Terminal{Template: `kitty --title "unterminated -e`})
			})

			It("should fail with ErrConfigParse before spawning", func() {
				err := exe.Execute("/apps/htop.desktop", entries)
				Expect(err).To(MatchError(ErrConfigParse))
				Expect(spawner.commands).To(BeEmpty())
				Expect(saver.calls).To(BeEmpty())
			})
		})

		Context("when saving fails", func() {
			BeforeEach(func() {
				saver.err = errors.New("disk full")
			})

			It("should return the error after launching", func() {
				err := exe.Execute("/usr/bin/ls", entries)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("disk full"))
				Expect(spawner.commands).To(HaveLen(1))

				e, _ := entries.Get("/usr/bin/ls")
				Expect(e.Count).To(Equal(uint64(3)))
			})
		})
	})

	Describe("ExecPretrimmed", func() {
		It("should spawn the trimmed command without saving", func() {
			Expect(exe.ExecPretrimmed("  firefox --private-window  ")).To(Succeed())
			Expect(spawner.commands).To(Equal([]string{"firefox --private-window"}))
			Expect(saver.calls).To(BeEmpty())
		})
	})

	Describe("WithTerminal", func() {
		It("should not change the original executor", func() {
			kitty := exe.WithTerminal(Terminal{Program: "kitty"})
			Expect(kitty.Terminal().Program).To(Equal("kitty"))
			Expect(exe.Terminal()).To(Equal(Terminal{}))
		})
	})
})

var _ = Describe("Classify", func() {
	DescribeTable("launch modes",
		func(e *entry.Entry, mode Mode) {
			Expect(Classify(e)).To(Equal(mode))
		},
		Entry("bare executable", &entry.Entry{}, ModeCommand),
		Entry("bare executable with a stray terminal flag", &entry.Entry{Terminal: true}, ModeCommand),
		Entry("desktop app", &entry.Entry{IsDesktop: true}, ModeApp),
		Entry("desktop terminal app", &entry.Entry{IsDesktop: true, Terminal: true}, ModeTerminal),
	)

	It("should name the modes", func() {
		Expect(ModeTerminal.String()).To(Equal("terminal"))
	})
})
