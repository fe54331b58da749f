package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/parley/pkg/config"
)

var _ = Describe("Config", func() {
	writeFile := func(body string) string {
		path := filepath.Join(GinkgoT().TempDir(), "parley.toml")
		Expect(os.WriteFile(path, []byte(body), 0o600)).To(Succeed())
		return path
	}

	Describe("LoadWithEnv", func() {
		It("returns the defaults with an empty environment", func() {
			cfg, err := config.LoadWithEnv("", nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.ListenAddr).To(Equal(config.DefaultListenAddr))
			Expect(cfg.Completion.Model).To(Equal(config.DefaultModel))
			Expect(cfg.Completion.MaxTokens).To(Equal(4096))
			Expect(cfg.Completion.FallbackMessage).To(Equal(config.DefaultFallback))
			Expect(cfg.Speech.Backend).To(Equal(config.BackendVoicevox))
			Expect(cfg.Speech.Speaker).To(Equal("1"))
			Expect(cfg.Speech.OutputPath).To(Equal("output.mp3"))
			Expect(cfg.Session.TTL).To(Equal(24 * time.Hour))
		})

		It("reads credentials from the environment", func() {
			cfg, err := config.LoadWithEnv("", map[string]string{
				"GROQ_API_KEY":       "groq-secret",
				"TTS_API_KEY":        "tts-secret",
				"GOOGLE_TTS_API_KEY": "google-secret",
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.Completion.Token).To(Equal("groq-secret"))
			Expect(cfg.Speech.VoicevoxToken).To(Equal("tts-secret"))
			Expect(cfg.Speech.GoogleAPIKey).To(Equal("google-secret"))
		})

		It("layers the file over defaults and the environment over the file", func() {
			path := writeFile(`
listen = ":9000"

[completion]
model = "llama3-8b-8192"
history = "latest"
timeout = "30s"

[speech]
backend = "google"
output_path = ""
`)
			cfg, err := config.LoadWithEnv(path, map[string]string{
				"PARLEY_MODEL": "mixtral-8x7b-32768",
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.ListenAddr).To(Equal(":9000"))
			Expect(cfg.Completion.Model).To(Equal("mixtral-8x7b-32768"))
			Expect(cfg.Completion.History).To(Equal("latest"))
			Expect(cfg.Completion.Timeout).To(Equal(30 * time.Second))
			Expect(cfg.Speech.Backend).To(Equal(config.BackendGoogle))
			Expect(cfg.Speech.OutputPath).To(BeEmpty())
			Expect(cfg.Speech.Language).To(Equal(config.DefaultLanguage))
		})

		It("finds the file through PARLEY_CONFIG", func() {
			path := writeFile(`listen = ":7000"`)

			cfg, err := config.LoadWithEnv("", map[string]string{config.EnvConfigPath: path})
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.ListenAddr).To(Equal(":7000"))
		})

		It("never reads credentials from the file", func() {
			path := writeFile(`
[completion]
Token = "from-file"
`)
			cfg, err := config.LoadWithEnv(path, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Completion.Token).To(BeEmpty())
		})

		It("fails on a missing file", func() {
			_, err := config.LoadWithEnv(filepath.Join(GinkgoT().TempDir(), "nope.toml"), nil)
			Expect(err).To(MatchError(ContainSubstring("does not exist")))
		})

		It("fails on malformed TOML", func() {
			_, err := config.LoadWithEnv(writeFile(`listen = `), nil)
			Expect(err).To(MatchError(ContainSubstring("parsing config file")))
		})
	})

	Describe("Validate", func() {
		It("accepts the defaults", func() {
			Expect(config.Default().Validate()).To(Succeed())
		})

		It("reports every problem at once", func() {
			cfg := config.Default()
			cfg.Speech.Backend = "festival"
			cfg.Completion.History = "some"
			cfg.Completion.MaxTokens = 0

			err := cfg.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("festival"))
			Expect(err.Error()).To(ContainSubstring("history mode"))
			Expect(err.Error()).To(ContainSubstring("max_tokens"))
		})

		It("restricts the model to supported_models", func() {
			cfg := config.Default()
			cfg.Completion.SupportedModels = []string{"llama3-8b-8192"}

			Expect(cfg.Validate()).To(MatchError(ContainSubstring("supported_models")))
		})
	})

	Describe("Warnings", func() {
		It("warns about missing credentials", func() {
			cfg := config.Default()

			Expect(cfg.Warnings()).To(ContainElement(ContainSubstring("GROQ_API_KEY")))
			Expect(cfg.Warnings()).To(ContainElement(ContainSubstring("TTS_API_KEY")))
		})

		It("is quiet when everything is set", func() {
			cfg := config.Default()
			cfg.Completion.Token = "a"
			cfg.Speech.VoicevoxToken = "b"

			Expect(cfg.Warnings()).To(BeEmpty())
		})
	})
})
