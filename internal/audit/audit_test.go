package audit

import (
	detectionService "SentinelAI/internal/api/detection/service"
	"SentinelAI/internal/entity"
	"SentinelAI/pkg/log"
	"SentinelAI/pkg/utils"
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFrame(t *testing.T, dir, name string, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 500))
	for y := 0; y < 500; y++ {
		for x := 0; x < 400; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	data, err := utils.EncodeJPEG(img, 95)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

type oneFaceDetector struct{}

func (oneFaceDetector) Detect(context.Context, entity.Frame) ([]entity.FaceDetection, error) {
	return []entity.FaceDetection{{
		TopLeft:     entity.Point{X: 100, Y: 100},
		BottomRight: entity.Point{X: 300, Y: 400},
		Probability: 0.9,
	}}, nil
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	skin := color.RGBA{R: 220, G: 170, B: 140, A: 255}
	blue := color.RGBA{R: 90, G: 140, B: 200, A: 255}

	writeFrame(t, dir, "0001.jpg", blue)
	writeFrame(t, dir, "0002.jpg", skin)
	writeFrame(t, dir, "0003.jpg", blue)
	writeFrame(t, dir, "0004.jpg", blue)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0005.jpg"), []byte("broken"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	ds := detectionService.NewDetectionService(log.Discard(), oneFaceDetector{}, detectionService.DefaultConfig())

	var progress bytes.Buffer
	report, err := Run(context.Background(), log.Discard(), ds, Options{FramesDir: dir, Location: "Lobby"}, &progress)
	require.NoError(t, err)

	require.Len(t, report.Frames, 4)
	assert.Equal(t, "0001.jpg", report.Frames[0].File)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 3, report.Tally[entity.StatusMaskDetected])
	assert.Equal(t, 1, report.Tally[entity.StatusNoMask])
	assert.Equal(t, 75, report.ComplianceRate())

	var out bytes.Buffer
	require.NoError(t, report.Print(&out))
	assert.Contains(t, out.String(), "Lobby")
	assert.Contains(t, out.String(), "75%")
}

func TestRun_Every(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"} {
		writeFrame(t, dir, name, color.RGBA{R: 90, G: 140, B: 200, A: 255})
	}

	ds := detectionService.NewDetectionService(log.Discard(), oneFaceDetector{}, detectionService.DefaultConfig())
	report, err := Run(context.Background(), log.Discard(), ds, Options{FramesDir: dir, Every: 2}, &bytes.Buffer{})
	require.NoError(t, err)

	require.Len(t, report.Frames, 3)
	assert.Equal(t, "e.jpg", report.Frames[2].File)
}

func TestRun_DetectorFailureCountsAsError(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "a.jpg", color.RGBA{R: 90, G: 140, B: 200, A: 255})

	logger, hook := logtest.NewNullLogger()
	ds := detectionService.NewDetectionService(log.Discard(), nil, detectionService.DefaultConfig())
	report, err := Run(context.Background(), logger, ds, Options{FramesDir: dir}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Tally[entity.StatusError])
	assert.Equal(t, 100, report.ComplianceRate())

	require.Len(t, report.Frames, 1)
	assert.Contains(t, report.Frames[0].Err, "face detector not configured")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Contains(t, entry.Data["file"], "a.jpg")

	var out bytes.Buffer
	require.NoError(t, report.Print(&out))
	assert.Contains(t, out.String(), "a.jpg: ")
}

func TestRun_EmptyDir(t *testing.T) {
	ds := detectionService.NewDetectionService(log.Discard(), nil, detectionService.DefaultConfig())

	_, err := Run(context.Background(), log.Discard(), ds, Options{FramesDir: t.TempDir()}, &bytes.Buffer{})
	assert.Error(t, err)
}
