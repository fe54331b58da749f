package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Artifact is a single-slot audio file. Every Write replaces the previous
// content; a second turn started before the first one's audio is played
// silently overwrites it.
type Artifact struct {
	path string
}

// NewArtifact creates an Artifact at path. Nothing is written until Write.
func NewArtifact(path string) *Artifact {
	return &Artifact{path: path}
}

// Path returns the file location.
func (a *Artifact) Path() string {
	return a.path
}

// Write replaces the file content with audio. The content is written to a
// temporary file in the same directory and renamed over the slot, so a reader
// sees either the old or the new audio.
func (a *Artifact) Write(audio []byte) error {
	dir := filepath.Dir(a.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(a.path)+"-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("setting artifact permissions: %w", err)
	}

	if err := os.Rename(tmp.Name(), a.path); err != nil {
		return fmt.Errorf("replacing artifact: %w", err)
	}
	return nil
}

// Read returns the current content.
func (a *Artifact) Read() ([]byte, error) {
	return os.ReadFile(a.path)
}

type artifactSynthesizer struct {
	next     Synthesizer
	artifact *Artifact
	logger   *zap.Logger
}

// WithArtifact writes every successful synthesis of next to artifact and sets
// Result.Path. A failed write is logged; the audio is still returned.
func WithArtifact(next Synthesizer, artifact *Artifact, logger *zap.Logger) Synthesizer {
	return &artifactSynthesizer{next: next, artifact: artifact, logger: logger}
}

func (s *artifactSynthesizer) Synthesize(ctx context.Context, req Request) Result {
	result := s.next.Synthesize(ctx, req)
	if !result.OK() {
		return result
	}

	if err := s.artifact.Write(result.Audio); err != nil {
		s.logger.Error("failed to write audio artifact",
			zap.String("path", s.artifact.Path()),
			zap.Error(err),
		)
		return result
	}

	result.Path = s.artifact.Path()
	s.logger.Debug("audio artifact written",
		zap.String("path", result.Path),
		zap.Int("bytes", len(result.Audio)),
	)
	return result
}
