package llm_test

import (
	"errors"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/parley/pkg/llm"
)

var _ = Describe("Stream", func() {
	Describe("Accumulate", func() {
		It("folds fragments in order and skips empty ones", func() {
			var seen []string
			text, err := llm.Accumulate(llm.StaticStream("こんにちは", "", "、今日は", "どんなご用件ですか？"), func(f string) {
				seen = append(seen, f)
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("こんにちは、今日はどんなご用件ですか？"))
			Expect(seen).To(Equal([]string{"こんにちは", "、今日は", "どんなご用件ですか？"}))
		})

		It("returns the partial text and the error of an early termination", func() {
			sent := 0
			boom := errors.New("connection reset")
			s := llm.NewStream(func() (string, error) {
				sent++
				if sent > 2 {
					return "", boom
				}
				return "part", nil
			}, nil)

			text, err := llm.Accumulate(s, nil)

			Expect(text).To(Equal("partpart"))
			Expect(err).To(MatchError(boom))
		})

		It("closes the stream", func() {
			closed := 0
			s := llm.NewStream(func() (string, error) { return "", io.EOF }, func() error {
				closed++
				return nil
			})

			_, _ = llm.Accumulate(s, nil)
			Expect(s.Close()).To(Succeed())

			Expect(closed).To(Equal(1))
		})
	})

	It("is not restartable", func() {
		s := llm.StaticStream("a")

		Expect(s.Next()).To(BeTrue())
		Expect(s.Next()).To(BeFalse())
		Expect(s.Next()).To(BeFalse())
		Expect(s.Err()).NotTo(HaveOccurred())
	})

	It("stops after Close", func() {
		s := llm.StaticStream("a", "b")
		Expect(s.Close()).To(Succeed())

		Expect(s.Next()).To(BeFalse())
	})

	It("marks fallback streams", func() {
		s := llm.FallbackStream("sorry")

		Expect(s.Fallback()).To(BeTrue())
		text, err := llm.Accumulate(s, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("sorry"))
	})
})
