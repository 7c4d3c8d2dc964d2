package main

import (
	"SentinelAI/internal/config"
	"SentinelAI/pkg/audio"
	"SentinelAI/pkg/log"
	"SentinelAI/pkg/redis"
	"SentinelAI/pkg/smtp"
	websocketPkg "SentinelAI/pkg/websocket"
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	envErr := godotenv.Load()

	logger := log.NewLogger()
	if envErr != nil {
		logger.Warnf("No .env file loaded, using process environment: %v", envErr)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Error loading configuration: %v", err)
	}

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()

	options := []config.ServerOption{
		config.WithFiber(fiberApp),
		config.WithConfig(cfg),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithMiddleware(),
		config.WithS3Client(),
		config.WithUtils(),
		config.WithSpeaker(newSpeaker(logger, cfg.Audio)),
	}

	if cfg.DetectorURL != "" {
		options = append(options, config.WithWebSocket(websocketPkg.NewAIWebSocketClient(logger, websocketPkg.Options{
			URL: cfg.DetectorURL,
		})))
	} else {
		logger.Warn("AI_FACE_DETECTION_URL not set, every frame will report ERROR")
	}

	if cfg.Redis.Address != "" {
		options = append(options, config.WithRedisServer(redis.New(logger, redis.Options{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})))
	}

	if cfg.SMTP.Mail != "" {
		options = append(options, config.WithSMTPMailer(smtp.New(smtp.Options{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Mail:     cfg.SMTP.Mail,
			Password: cfg.SMTP.Password,
		})))
	}

	server, err := config.NewServer(options...)
	if err != nil {
		logger.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server.RegisterHandler(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
	cancel()
}

// newSpeaker picks the speech backend: ElevenLabs, then OpenAI, then a
// logger when no API key or player is available.
func newSpeaker(logger *logrus.Logger, cfg config.AudioConfig) audio.Speaker {
	var synth audio.Synthesizer
	switch {
	case cfg.ElevenLabsAPIKey != "" && cfg.ElevenLabsVoiceID != "":
		synth = audio.NewTTSService(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID)
	case cfg.OpenAIAPIKey != "":
		synth = audio.NewOpenAITTS(cfg.OpenAIAPIKey, cfg.OpenAIVoice)
	default:
		logger.Info("No TTS API key configured, warnings will be logged only")
		return audio.NewLogSpeaker(logger)
	}

	player, err := audio.NewCommandPlayer(cfg.PlayerCommand)
	if err != nil {
		logger.Warnf("Audio player unavailable, warnings will be logged only: %v", err)
		return audio.NewLogSpeaker(logger)
	}

	return audio.NewSynthSpeaker(audio.NewCachedSynthesizer(synth), player)
}
