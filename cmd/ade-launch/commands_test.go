package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.etcd.io/bbolt"

	"github.com/0xADE/ade-launch/internal/entry"
	"github.com/0xADE/ade-launch/internal/executor"
	"github.com/0xADE/ade-launch/internal/history"
)

type recordingSpawner struct {
	commands []string
}

func (r *recordingSpawner) Spawn(command string) error {
	r.commands = append(r.commands, command)
	return nil
}

var _ = Describe("subcommands", func() {
	var (
		spawner      *recordingSpawner
		hello, other string
		topDesktop   string
		store        *history.Store
		historyPath  string
	)

	execute := func(args ...string) (string, error) {
		root := newRootCmdWith(&rootOptions{spawner: spawner})
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&bytes.Buffer{})
		root.SetArgs(args)
		err := root.Execute()
		return out.String(), err
	}

	BeforeEach(func() {
		spawner = &recordingSpawner{}
		store = history.NewStore()

		Expect(os.RemoveAll(filepath.Join(sandbox, "cache", "ade-launch"))).To(Succeed())
		historyPath = filepath.Join(sandbox, "cache", "ade-launch", "history.toml")

		hello = filepath.Join(binDir, "hello")
		other = filepath.Join(binDir, "other")
		Expect(os.WriteFile(hello, []byte("#!/bin/sh\necho hello\n"), 0755)).To(Succeed())
		Expect(os.WriteFile(other, []byte("#!/bin/sh\ntrue\n"), 0755)).To(Succeed())

		topDesktop = filepath.Join(appsDir, "top.desktop")
		Expect(os.WriteFile(topDesktop, []byte("[Desktop Entry]\nType=Application\nName=Top\nExec=top %F\nTerminal=true\n"), 0644)).To(Succeed())
	})

	count := func(id string) uint64 {
		GinkgoHelper()
		m, err := store.Load()
		Expect(err).NotTo(HaveOccurred())
		e, ok := m.Get(id)
		Expect(ok).To(BeTrue(), "no history entry for %s", id)
		return e.Count
	}

	Describe("run", func() {
		It("should scan on a history miss, launch and record the launch", func() {
			_, err := execute("run", hello)
			Expect(err).NotTo(HaveOccurred())
			Expect(spawner.commands).To(Equal([]string{hello}))

			data, err := os.ReadFile(historyPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("[\"" + hello + "\"]\nexec = \"" + hello + "\"\ndesktop = false\nterminal = false\ncount = 1\n"))
			Expect(count(other)).To(Equal(uint64(0)))
			Expect(count(topDesktop)).To(Equal(uint64(0)))
		})

		It("should count every launch", func() {
			_, err := execute("run", hello)
			Expect(err).NotTo(HaveOccurred())
			_, err = execute("run", hello)
			Expect(err).NotTo(HaveOccurred())
			Expect(count(hello)).To(Equal(uint64(2)))
			Expect(spawner.commands).To(HaveLen(2))
		})

		It("should wrap terminal apps with the flag's terminal command", func() {
			_, err := execute("--terminal-command", "foot -e", "run", topDesktop)
			Expect(err).NotTo(HaveOccurred())
			Expect(spawner.commands).To(Equal([]string{"foot -e top"}))
			Expect(count(topDesktop)).To(Equal(uint64(1)))
		})

		It("should fail for unknown identifiers without touching history", func() {
			_, err := execute("run", filepath.Join(binDir, "missing"))
			Expect(err).To(MatchError(executor.ErrNotFound))
			Expect(spawner.commands).To(BeEmpty())

			data, err := os.ReadFile(historyPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(BeEmpty())
		})
	})

	Describe("exec", func() {
		It("should launch the joined command line without recording it", func() {
			_, err := execute("exec", "echo", "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(spawner.commands).To(Equal([]string{"echo hi"}))

			m, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Len()).To(Equal(0))
		})
	})

	Describe("list", func() {
		BeforeEach(func() {
			m := entry.NewMap()
			m.Set(&entry.Entry{ID: other, Exec: other, Count: 1})
			m.Set(&entry.Entry{ID: hello, Exec: hello, Count: 5})
			Expect(store.Save(m)).To(Succeed())
		})

		It("should print history entries most used first", func() {
			out, err := execute("list")
			Expect(err).NotTo(HaveOccurred())

			lines := strings.Split(strings.TrimSpace(out), "\n")
			Expect(lines).To(HaveLen(2))
			Expect(strings.Fields(lines[0])).To(Equal([]string{"5", hello, hello}))
			Expect(strings.Fields(lines[1])).To(Equal([]string{"1", other, other}))
		})

		It("should include discovered entries with --all", func() {
			out, err := execute("list", "--all", "--limit", "3")
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Split(strings.TrimSpace(out), "\n")).To(HaveLen(3))
			Expect(out).To(ContainSubstring("Top"))
		})
	})

	Describe("import-legacy", func() {
		var dbPath string

		BeforeEach(func() {
			dbPath = filepath.Join(sandbox, "legacy.run-index")
			DeferCleanup(os.RemoveAll, dbPath)
		})

		seedLegacy := func(counts map[string]uint64) {
			GinkgoHelper()
			db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
			Expect(err).NotTo(HaveOccurred())
			defer db.Close()
			Expect(db.Update(func(tx *bbolt.Tx) error {
				b, err := tx.CreateBucketIfNotExists([]byte("run_index"))
				if err != nil {
					return err
				}
				for k, v := range counts {
					buf := make([]byte, 8)
					binary.BigEndian.PutUint64(buf, v)
					if err := b.Put([]byte(k), buf); err != nil {
						return err
					}
				}
				return nil
			})).To(Succeed())
		}

		It("should raise counts of known entries and save", func() {
			m := entry.NewMap()
			m.Set(&entry.Entry{ID: hello, Exec: hello, Count: 2})
			m.Set(&entry.Entry{ID: other, Exec: other, Count: 7})
			Expect(store.Save(m)).To(Succeed())
			seedLegacy(map[string]uint64{hello: 5, other: 3, "/usr/bin/gone": 9})

			out, err := execute("import-legacy", "--path", dbPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("Imported 1 of 3 recorded counts\n"))

			Expect(count(hello)).To(Equal(uint64(5)))
			Expect(count(other)).To(Equal(uint64(7)))
			Expect(count(topDesktop)).To(Equal(uint64(0)))

			loaded, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			_, ok := loaded.Get("/usr/bin/gone")
			Expect(ok).To(BeFalse())

			out, err = execute("import-legacy", "--path", dbPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("Imported 0 of 3 recorded counts\n"))
		})

		It("should do nothing without a legacy index", func() {
			out, err := execute("import-legacy", "--path", dbPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HavePrefix("No run index at"))
			Expect(historyPath).NotTo(BeAnExistingFile())
		})
	})

	Describe("remote", func() {
		It("should report a daemon that is not listening", func() {
			_, err := execute("remote", "--socket", filepath.Join(sandbox, "no-launchd"), "list")
			Expect(err).To(MatchError(ContainSubstring("failed to connect to socket")))
		})
	})
})
