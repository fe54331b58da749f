package speech_test

import (
	"encoding/base64"
	"sync/atomic"
)

// fakeMP3 is an ID3 header followed by one MPEG-1 Layer III frame header and
// padding; enough for the tests to treat it as an opaque MP3 blob.
var fakeMP3 = append([]byte("ID3\x04\x00\x00\x00\x00\x00\x00\xff\xfb\x90\x64"), make([]byte, 64)...)

// fixtureAudioContent is a canned Cloud Text-to-Speech audioContent value.
var fixtureAudioContent = base64.StdEncoding.EncodeToString(fakeMP3)

// counter counts requests reaching a test double.
type counter struct {
	n atomic.Int64
}

func (c *counter) inc() {
	c.n.Add(1)
}

func (c *counter) count() int {
	return int(c.n.Load())
}
