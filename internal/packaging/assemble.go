package packaging

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Exec runs one compiled ffmpeg stream.
type Exec func(ctx context.Context, stream *ffmpeg.Stream) error

// runStream runs the stream's ffmpeg process and kills it when ctx ends.
func runStream(ctx context.Context, stream *ffmpeg.Stream) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var stderr bytes.Buffer
	cmd := stream.WithErrorOutput(&stderr).Compile()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	}
}

type Assembler struct {
	ImageFolder string
	PassMasks   []string
	Framerate   int
	PNG         bool
	SaveFrames  bool
	SaveMP4     bool

	// Exec runs each encode, runStream when nil.
	Exec Exec
	Log  zerolog.Logger
}

// Stream builds the ffmpeg graph that encodes one pass. The first frame of
// the sequence is dropped.
func (a *Assembler) Stream(pass, output string) *ffmpeg.Stream {
	input := filepath.Join(a.ImageFolder, Prefix(pass)+"_*."+Ext(pass, a.PNG))
	return ffmpeg.
		Input(input, ffmpeg.KwArgs{"pattern_type": "glob", "framerate": a.Framerate}).
		Filter("select", ffmpeg.Args{"gte(n,1)"}).
		Output(output, ffmpeg.KwArgs{"loglevel": "quiet"}).
		OverWriteOutput()
}

// FramesDir maps a video base name to the directory its frames move to.
func FramesDir(videoName string) string {
	return strings.ReplaceAll(videoName+string(filepath.Separator), "videos", "frames")
}

// Assemble encodes one video per pass named videoName+pass+".mp4" and, when
// frames are kept, moves the image folder under FramesDir(videoName). The
// image folder is left empty for the next trial either way.
func (a *Assembler) Assemble(ctx context.Context, videoName string) (videos []string, framesDir string, err error) {
	if a.SaveMP4 {
		if err := os.MkdirAll(filepath.Dir(videoName), 0o755); err != nil {
			return nil, "", err
		}
		run := a.Exec
		if run == nil {
			run = runStream
		}
		for _, pass := range a.PassMasks {
			out := videoName + pass + ".mp4"
			if err := run(ctx, a.Stream(pass, out)); err != nil {
				return videos, "", fmt.Errorf("encode %s: %w", pass, err)
			}
			videos = append(videos, out)
			a.Log.Debug().Str("video", out).Msg("video written")
		}
	}

	if a.SaveFrames {
		framesDir = FramesDir(videoName)
		if err := os.MkdirAll(framesDir, 0o755); err != nil {
			return videos, "", err
		}
		dst := filepath.Join(framesDir, filepath.Base(a.ImageFolder))
		if err := os.RemoveAll(dst); err != nil {
			return videos, "", err
		}
		if err := os.Rename(a.ImageFolder, dst); err != nil {
			return videos, "", fmt.Errorf("move frames: %w", err)
		}
	} else if err := os.RemoveAll(a.ImageFolder); err != nil {
		return videos, "", err
	}

	if err := os.MkdirAll(a.ImageFolder, 0o755); err != nil {
		return videos, framesDir, err
	}
	return videos, framesDir, nil
}
