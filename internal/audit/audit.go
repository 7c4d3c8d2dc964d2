package audit

import (
	detectionService "SentinelAI/internal/api/detection/service"
	violationRepository "SentinelAI/internal/api/violation/repository"
	"SentinelAI/internal/entity"
	"SentinelAI/pkg/utils"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

type Options struct {
	FramesDir string
	Location  string
	Every     int
	Timeout   time.Duration
}

// FrameResult is the outcome for one recorded frame.
type FrameResult struct {
	File   string
	Status entity.DetectionStatus
	Faces  int
	Err    string
}

type Report struct {
	Location string
	Frames   []FrameResult
	Tally    map[entity.DetectionStatus]int
	Skipped  int
}

// ComplianceRate treats every frame with faces as one entry.
func (r Report) ComplianceRate() int {
	masked := r.Tally[entity.StatusMaskDetected]
	return violationRepository.ComplianceRate(masked, masked+r.Tally[entity.StatusNoMask])
}

// ListFrames returns the JPEG files in dir in name order.
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".jpg" || ext == ".jpeg" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	return files, nil
}

// Run replays recorded frames through detection and classification. No
// violations are captured and no audio is played.
func Run(ctx context.Context, log *logrus.Logger, ds detectionService.IDetectionService, opts Options, progress io.Writer) (Report, error) {
	if opts.Every <= 0 {
		opts.Every = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	files, err := ListFrames(opts.FramesDir)
	if err != nil {
		return Report{}, fmt.Errorf("list frames: %w", err)
	}
	if len(files) == 0 {
		return Report{}, fmt.Errorf("no .jpg frames in %s", opts.FramesDir)
	}

	report := Report{
		Location: opts.Location,
		Tally:    make(map[entity.DetectionStatus]int),
	}

	bar := progressbar.NewOptions((len(files)+opts.Every-1)/opts.Every,
		progressbar.OptionSetDescription("Auditing frames"),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowCount(),
	)

	var seq uint64
	for i, file := range files {
		if i%opts.Every != 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, ok := analyzeFile(ctx, log, ds, file, seq, opts.Timeout)
		seq++
		_ = bar.Add(1)

		if !ok {
			report.Skipped++
			continue
		}
		report.Frames = append(report.Frames, result)
		report.Tally[result.Status]++
	}
	_ = bar.Finish()

	return report, nil
}

func analyzeFile(ctx context.Context, log *logrus.Logger, ds detectionService.IDetectionService, file string, seq uint64, timeout time.Duration) (FrameResult, bool) {
	data, err := os.ReadFile(file)
	if err != nil {
		log.WithField("file", file).Warnf("Skipping unreadable frame: %v", err)
		return FrameResult{}, false
	}

	img, err := utils.DecodeRGBA(data)
	if err != nil {
		log.WithField("file", file).Warnf("Skipping undecodable frame: %v", err)
		return FrameResult{}, false
	}

	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	status, result, err := ds.Analyze(c, entity.Frame{Seq: seq, CapturedAt: time.Now(), Image: img})

	frame := FrameResult{
		File:   filepath.Base(file),
		Status: status,
		Faces:  len(result.Faces),
	}
	if err != nil {
		log.WithField("file", file).Warnf("Detection failed: %v", err)
		frame.Err = err.Error()
	}

	return frame, true
}

var reportOrder = []entity.DetectionStatus{
	entity.StatusScanning,
	entity.StatusMaskDetected,
	entity.StatusNoMask,
	entity.StatusError,
}

// Print writes the per-status tally and compliance summary.
func (r Report) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)

	fmt.Fprintf(tw, "LOCATION\t%s\n", r.Location)
	fmt.Fprintf(tw, "FRAMES\t%d\n", len(r.Frames))
	if r.Skipped > 0 {
		fmt.Fprintf(tw, "SKIPPED\t%d\n", r.Skipped)
	}
	fmt.Fprintln(tw, "")
	fmt.Fprintln(tw, "STATUS\tFRAMES")
	fmt.Fprintln(tw, "------\t------")
	for _, status := range reportOrder {
		fmt.Fprintf(tw, "%s\t%d\n", status, r.Tally[status])
	}
	fmt.Fprintln(tw, "")
	fmt.Fprintf(tw, "COMPLIANCE\t%d%%\n", r.ComplianceRate())

	for _, f := range r.Frames {
		if f.Err != "" {
			fmt.Fprintf(tw, "FAILED\t%s: %s\n", f.File, f.Err)
		}
	}

	return tw.Flush()
}
