package turn_test

import (
	"context"
	"sync"

	"github.com/papercomputeco/parley/pkg/llm"
	"github.com/papercomputeco/parley/pkg/speech"
)

// recorder keeps the order in which collaborators were called.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeCompleter struct {
	rec       *recorder
	result    llm.CompletionResult
	fragments []string

	// seen is the number of turns in the conversation at call time.
	seen    int
	lastMsg string
}

func (f *fakeCompleter) observe(conv *llm.Conversation) {
	f.seen = conv.Len()
	if t, ok := conv.LastOf(llm.RoleUser); ok {
		f.lastMsg = t.Content
	}
}

func (f *fakeCompleter) Complete(_ context.Context, conv *llm.Conversation) llm.CompletionResult {
	f.rec.record("complete")
	f.observe(conv)
	return f.result
}

func (f *fakeCompleter) CompleteStream(_ context.Context, conv *llm.Conversation, onFragment func(string)) llm.CompletionResult {
	f.rec.record("stream")
	f.observe(conv)
	for _, fr := range f.fragments {
		f.rec.record("fragment")
		onFragment(fr)
	}
	return f.result
}

type fakeSynthesizer struct {
	rec    *recorder
	result speech.Result
	texts  []string
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, req speech.Request) speech.Result {
	f.rec.record("synthesize")
	f.texts = append(f.texts, req.Text)
	return f.result
}
