package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Output encoding constants shared by both chapter recipes
const (
	VideoCodec   = "libx264"
	AudioCodec   = "aac"
	PixelFormat  = "yuv420p"
	AudioBitrate = "192k"
)

// ---------------------------------------------------------------------------
// Declarative transcoding graph
//
// A Graph describes one atomic ffmpeg job: named input files (with per-input
// flags), a chain of filter nodes wired by stream labels, and the two output
// stream mappings. Building a Graph is pure; only Render touches ffmpeg, so
// recipe shape can be unit tested without the binary.
// ---------------------------------------------------------------------------

// Input is one -i entry. Options are input-side flags such as "-loop 1".
type Input struct {
	Path    string
	Options []string
}

// FilterNode applies a filter chain to labelled input streams and labels
// its outputs. Inputs reference either raw streams ("0:v", "2:a") or
// outputs of earlier nodes.
type FilterNode struct {
	Inputs  []string
	Chain   string
	Outputs []string
}

type Graph struct {
	Inputs   []Input
	Filters  []FilterNode
	MapVideo string // label of the video stream to encode
	MapAudio string // label of the audio stream to encode
}

// FilterComplex renders the graph's filter nodes in ffmpeg
// -filter_complex syntax.
func (g Graph) FilterComplex() string {
	var b strings.Builder
	for i, node := range g.Filters {
		if i > 0 {
			b.WriteByte(';')
		}
		for _, in := range node.Inputs {
			fmt.Fprintf(&b, "[%s]", in)
		}
		b.WriteString(node.Chain)
		for _, out := range node.Outputs {
			fmt.Fprintf(&b, "[%s]", out)
		}
	}
	return b.String()
}

// Args renders the complete ffmpeg argument list for this graph.
func (g Graph) Args(outputPath string) []string {
	var args []string
	for _, in := range g.Inputs {
		args = append(args, in.Options...)
		args = append(args, "-i", in.Path)
	}

	args = append(args,
		"-filter_complex", g.FilterComplex(),
		"-map", "["+g.MapVideo+"]",
		"-map", "["+g.MapAudio+"]",
		"-c:v", VideoCodec,
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-pix_fmt", PixelFormat,
		"-y",
		outputPath,
	)
	return args
}

// ---------------------------------------------------------------------------
// FFmpegService
// ---------------------------------------------------------------------------

type FFmpegService struct{}

func NewFFmpegService() *FFmpegService {
	return &FFmpegService{}
}

// Render executes one graph as a single atomic ffmpeg job. On failure the
// tail of ffmpeg's stderr is attached so the engine diagnostic survives
// into the order's status message.
func (s *FFmpegService) Render(ctx context.Context, g Graph, outputPath string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", g.Args(outputPath)...)

	var stderr bytes.Buffer
	cmd.Stdout = os.Stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg render failed: %w: %s", err, tailOf(stderr.String(), 400))
	}

	return nil
}

// Concat joins clips in order without re-encoding, via the concat demuxer.
// The output duration is the sum of the input durations.
func (s *FFmpegService) Concat(ctx context.Context, clipPaths []string, outputPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	// Create a concat list file next to the output
	listPath := outputPath + ".concat.txt"
	f, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("failed to create concat list: %w", err)
	}

	for _, path := range clipPaths {
		// Write in FFmpeg concat format
		fmt.Fprintf(f, "file '%s'\n", filepath.ToSlash(path))
	}
	f.Close()
	defer os.Remove(listPath)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stderr bytes.Buffer
	cmd.Stdout = os.Stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concatenate failed: %w: %s", err, tailOf(stderr.String(), 400))
	}

	return nil
}

// ProbeDuration returns a media file's duration in seconds using ffprobe.
func (s *FFmpegService) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return duration, nil
}

// tailOf keeps the last maxLen characters — ffmpeg prints the actual error
// at the end of its stderr stream.
func tailOf(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}
