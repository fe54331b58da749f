package speech_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/parley/pkg/config"
	"github.com/papercomputeco/parley/pkg/speech"
)

var _ = Describe("New", func() {
	It("builds the voicevox backend", func() {
		cfg := config.Default().Speech
		cfg.OutputPath = ""

		s, err := speech.New(cfg, nil, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeAssignableToTypeOf(&speech.Voicevox{}))
	})

	It("builds the google backend", func() {
		cfg := config.Default().Speech
		cfg.Backend = config.BackendGoogle
		cfg.OutputPath = ""

		s, err := speech.New(cfg, nil, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeAssignableToTypeOf(&speech.Google{}))
	})

	It("wraps the backend with the output file", func() {
		cfg := config.Default().Speech

		s, err := speech.New(cfg, nil, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		Expect(s).NotTo(BeNil())
		Expect(s).NotTo(BeAssignableToTypeOf(&speech.Voicevox{}))
	})

	It("returns nil for the none backend", func() {
		cfg := config.Default().Speech
		cfg.Backend = config.BackendNone

		s, err := speech.New(cfg, nil, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeNil())
	})

	It("rejects unknown backends", func() {
		cfg := config.Default().Speech
		cfg.Backend = "festival"

		_, err := speech.New(cfg, nil, zap.NewNop())
		Expect(err).To(MatchError(ContainSubstring("festival")))
	})
})

var _ = Describe("Result", func() {
	It("is not OK without audio", func() {
		Expect(speech.Result{}.OK()).To(BeFalse())
	})

	It("is not OK with a failure", func() {
		Expect(speech.Result{Audio: []byte{1}, Failure: &speech.Failure{}}.OK()).To(BeFalse())
	})

	It("describes failures without a status", func() {
		f := &speech.Failure{Message: "text is empty"}
		Expect(f.Error()).To(Equal("speech synthesis failed: text is empty"))
	})
})

var _ = DescribeTable("ContentType",
	func(encoding, want string) {
		Expect(speech.ContentType(encoding)).To(Equal(want))
	},
	Entry("mp3", "MP3", "audio/mpeg"),
	Entry("lower case", "mp3", "audio/mpeg"),
	Entry("opus", "OGG_OPUS", "audio/ogg"),
	Entry("pcm", "LINEAR16", "audio/wav"),
	Entry("unknown", "FLAC", "application/octet-stream"),
)
