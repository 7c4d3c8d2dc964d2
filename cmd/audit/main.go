package main

import (
	detectionService "SentinelAI/internal/api/detection/service"
	"SentinelAI/internal/audit"
	"SentinelAI/internal/config"
	"SentinelAI/pkg/log"
	websocketPkg "SentinelAI/pkg/websocket"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var opts audit.Options

var rootCmd = &cobra.Command{
	Use:   "audit",
	Short: "Replay recorded camera frames through the mask-compliance pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		logger := log.NewLogger()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.DetectorURL == "" {
			return fmt.Errorf("AI_FACE_DETECTION_URL is required")
		}
		if opts.Location == "" {
			opts.Location = cfg.Location
		}

		detector := websocketPkg.NewAIWebSocketClient(logger, websocketPkg.Options{URL: cfg.DetectorURL})
		defer detector.CloseConnections()

		ds := detectionService.NewDetectionService(logger, detector, cfg.DetectionServiceConfig())

		report, err := audit.Run(cmd.Context(), logger, ds, opts, os.Stderr)
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stderr)
		return report.Print(os.Stdout)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&opts.FramesDir, "frames", "f", "", "Directory of recorded .jpg frames")
	rootCmd.Flags().StringVarP(&opts.Location, "location", "l", "", "Camera location label (default: CAMERA_LOCATION)")
	rootCmd.Flags().IntVarP(&opts.Every, "every", "n", 1, "Audit every Nth frame")
	rootCmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "Per-frame detector timeout")

	rootCmd.MarkFlagRequired("frames")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
