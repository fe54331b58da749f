package llm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/parley/pkg/llm"
)

var _ = Describe("Conversation", func() {
	Describe("NewConversation", func() {
		It("seeds the system turn first", func() {
			conv := llm.NewConversation("必ず日本語で返信すること。")

			Expect(conv.Len()).To(Equal(1))
			Expect(conv.Turns()[0].Role).To(Equal(llm.RoleSystem))
			Expect(conv.SystemPrompt()).To(Equal("必ず日本語で返信すること。"))
		})

		It("creates an empty conversation without a prompt", func() {
			conv := llm.NewConversation("")

			Expect(conv.Len()).To(Equal(0))
			Expect(conv.SystemPrompt()).To(BeEmpty())
			_, ok := conv.Last()
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Append", func() {
		var conv *llm.Conversation

		BeforeEach(func() {
			conv = llm.NewConversation("system")
		})

		It("links each turn to the previous one", func() {
			user := conv.Append(llm.RoleUser, "こんにちは")
			assistant := conv.Append(llm.RoleAssistant, "こんにちは、今日はどんなご用件ですか？")

			system := conv.Turns()[0]
			Expect(system.ParentHash).To(BeNil())
			Expect(*user.ParentHash).To(Equal(system.Hash))
			Expect(*assistant.ParentHash).To(Equal(user.Hash))
		})

		It("produces a valid SHA-256 hex hash", func() {
			t := conv.Append(llm.RoleUser, "hello")

			Expect(t.Hash).To(MatchRegexp("^[a-f0-9]{64}$"))
		})

		It("produces identical hashes for identical histories", func() {
			other := llm.NewConversation("system")

			a := conv.Append(llm.RoleUser, "same")
			b := other.Append(llm.RoleUser, "same")

			Expect(a.Hash).To(Equal(b.Hash))
		})

		It("produces different hashes for the same content after different prefixes", func() {
			other := llm.NewConversation("another system")

			a := conv.Append(llm.RoleUser, "same")
			b := other.Append(llm.RoleUser, "same")

			Expect(a.Hash).NotTo(Equal(b.Hash))
		})

		It("distinguishes roles with the same content", func() {
			a := llm.NewConversation("").Append(llm.RoleUser, "text")
			b := llm.NewConversation("").Append(llm.RoleAssistant, "text")

			Expect(a.Hash).NotTo(Equal(b.Hash))
		})

		It("refuses a second system turn", func() {
			Expect(func() { conv.Append(llm.RoleSystem, "again") }).To(Panic())
		})
	})

	Describe("Visible", func() {
		It("never includes the system turn", func() {
			conv := llm.NewConversation("hidden")
			conv.Append(llm.RoleUser, "question")
			conv.Append(llm.RoleAssistant, "answer")

			visible := conv.Visible()
			Expect(visible).To(HaveLen(2))
			for _, t := range visible {
				Expect(t.Role).NotTo(Equal(llm.RoleSystem))
			}
		})
	})

	Describe("Turns", func() {
		It("returns a copy", func() {
			conv := llm.NewConversation("system")
			turns := conv.Turns()
			turns[0].Content = "mutated"

			Expect(conv.SystemPrompt()).To(Equal("system"))
		})
	})

	Describe("Truncate", func() {
		It("rolls back to the given length", func() {
			conv := llm.NewConversation("system")
			conv.Append(llm.RoleUser, "first")
			n := conv.Len()
			conv.Append(llm.RoleUser, "second")

			conv.Truncate(n)

			last, ok := conv.Last()
			Expect(ok).To(BeTrue())
			Expect(last.Content).To(Equal("first"))
		})

		It("ignores lengths beyond the end", func() {
			conv := llm.NewConversation("system")
			conv.Truncate(10)

			Expect(conv.Len()).To(Equal(1))
		})
	})
})
