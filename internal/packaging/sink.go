package packaging

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/san-kum/containment/internal/trial"
)

// Sink packages each finished trial's captured frames.
type Sink struct {
	Capture   *Capture
	Assembler *Assembler

	// VideoDir holds the videos; frames go to the sibling "frames" tree.
	VideoDir string
}

func (s *Sink) VideoName(rep *trial.TrialReport) string {
	return filepath.Join(s.VideoDir, fmt.Sprintf("%s_%04d", rep.Setup.Kind, rep.Index))
}

func (s *Sink) Finish(ctx context.Context, rep *trial.TrialReport) error {
	defer s.Capture.Reset()

	if err := s.Capture.Err(); err != nil {
		return fmt.Errorf("capture frames: %w", err)
	}
	videos, frames, err := s.Assembler.Assemble(ctx, s.VideoName(rep))
	if err != nil {
		return err
	}
	rep.Videos = videos
	rep.FramesDir = frames
	return nil
}
