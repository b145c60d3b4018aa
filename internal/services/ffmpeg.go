package services

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// AudioTranscoder converts an audio file of any supported container into wav.
type AudioTranscoder interface {
	ToWAV(ctx context.Context, srcPath, dstPath string) error
}

type ffmpegTranscoder struct {
	binary string
}

func NewFFmpegTranscoder(binary string) AudioTranscoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &ffmpegTranscoder{binary: binary}
}

func (t *ffmpegTranscoder) ToWAV(ctx context.Context, srcPath, dstPath string) error {
	cmd := exec.CommandContext(ctx, t.binary,
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-i", srcPath,
		"-f", "wav",
		dstPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("ffmpeg: %s: %w", msg, err)
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}
