package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"os/exec"
	"time"

	"github.com/mnj/dupdupninja-v2/internal/dderr"
	"github.com/mnj/dupdupninja-v2/internal/ffmpeg"
)

// FFmpegSource is a FrameSource backed by the ffmpeg/ffprobe binaries: it
// delegates duration lookup to ffmpeg.Prober and shells out to ffmpeg
// itself for single-frame extraction via image2pipe.
type FFmpegSource struct {
	FFmpegPath string
	prober     *ffmpeg.Prober
}

// NewFFmpegSource returns a FrameSource that shells out to the named
// binaries (typically just "ffmpeg" and "ffprobe" on $PATH).
func NewFFmpegSource(ffmpegPath, ffprobePath string) *FFmpegSource {
	return &FFmpegSource{FFmpegPath: ffmpegPath, prober: ffmpeg.NewProber(ffprobePath)}
}

type ffmpegHandle struct {
	path string
}

func (s *FFmpegSource) Open(ctx context.Context, path string) (Handle, error) {
	return &ffmpegHandle{path: path}, nil
}

func (s *FFmpegSource) Close(h Handle) error { return nil }

func (s *FFmpegSource) Duration(ctx context.Context, h Handle) (time.Duration, error) {
	fh, ok := h.(*ffmpegHandle)
	if !ok {
		return 0, dderr.New(dderr.InvalidArgument, "invalid video handle")
	}

	result, err := s.prober.Probe(ctx, fh.path)
	if err != nil {
		return 0, dderr.Wrap(dderr.Io, err, "ffprobe duration lookup")
	}
	if result.Duration <= 0 {
		return 0, dderr.New(dderr.Decode, "ffprobe reported no duration")
	}
	return result.Duration, nil
}

func (s *FFmpegSource) FrameAt(ctx context.Context, h Handle, ts time.Duration) (image.Image, error) {
	fh, ok := h.(*ffmpegHandle)
	if !ok {
		return nil, dderr.New(dderr.InvalidArgument, "invalid video handle")
	}

	seconds := fmt.Sprintf("%.3f", ts.Seconds())
	cmd := exec.CommandContext(ctx, s.FFmpegPath,
		"-ss", seconds,
		"-i", fh.path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"pipe:1",
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, dderr.Wrap(dderr.Decode, err, "extract frame")
	}

	img, _, err := image.Decode(bytes.NewReader(out.Bytes()))
	if err != nil {
		return nil, dderr.Wrap(dderr.Decode, err, "decode extracted frame")
	}
	return img, nil
}
