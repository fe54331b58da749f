package bootstrap_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/parley/cmd/parley/bootstrap"
	"github.com/papercomputeco/parley/pkg/config"
)

var _ = Describe("Bootstrap", func() {
	Describe("NewOrchestrator", func() {
		It("enables speech for the configured backend", func() {
			cfg := config.Default()

			orch, err := bootstrap.NewOrchestrator(cfg, zap.NewNop(), true)
			Expect(err).NotTo(HaveOccurred())
			Expect(orch.SpeechEnabled()).To(BeTrue())
		})

		It("leaves speech off when asked to", func() {
			orch, err := bootstrap.NewOrchestrator(config.Default(), zap.NewNop(), false)
			Expect(err).NotTo(HaveOccurred())
			Expect(orch.SpeechEnabled()).To(BeFalse())
		})

		It("leaves speech off for the none backend", func() {
			cfg := config.Default()
			cfg.Speech.Backend = config.BackendNone

			orch, err := bootstrap.NewOrchestrator(cfg, zap.NewNop(), true)
			Expect(err).NotTo(HaveOccurred())
			Expect(orch.SpeechEnabled()).To(BeFalse())
		})

		It("rejects an unknown history mode", func() {
			cfg := config.Default()
			cfg.Completion.History = "everything"

			_, err := bootstrap.NewOrchestrator(cfg, zap.NewNop(), false)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("AudioType", func() {
		It("maps each backend to its audio type", func() {
			Expect(bootstrap.AudioType(config.SpeechConfig{Backend: config.BackendVoicevox})).To(Equal("audio/mpeg"))
			Expect(bootstrap.AudioType(config.SpeechConfig{Backend: config.BackendGoogle, Encoding: "OGG_OPUS"})).To(Equal("audio/ogg"))
		})
	})

	Describe("LoadConfig", func() {
		It("reads --config and --debug", func() {
			path := filepath.Join(GinkgoT().TempDir(), "parley.toml")
			Expect(os.WriteFile(path, []byte("[completion]\nmodel = \"llama3-8b-8192\"\n"), 0o644)).To(Succeed())

			cmd := &cobra.Command{Use: "test"}
			bootstrap.AddGlobalFlags(cmd)
			Expect(cmd.ParseFlags([]string{"--config", path, "--debug"})).To(Succeed())

			cfg, err := bootstrap.LoadConfig(cmd)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Completion.Model).To(Equal("llama3-8b-8192"))
			Expect(cfg.Debug).To(BeTrue())
		})

		It("works for commands without the global flags", func() {
			_, err := bootstrap.LoadConfig(&cobra.Command{Use: "bare"})
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
