package config

import (
	detectionHandler "SentinelAI/internal/api/detection/handler"
	detectionService "SentinelAI/internal/api/detection/service"
	violationHandler "SentinelAI/internal/api/violation/handler"
	violationRepository "SentinelAI/internal/api/violation/repository"
	violationService "SentinelAI/internal/api/violation/service"
	"SentinelAI/internal/feed"
	"SentinelAI/internal/middleware"
	"SentinelAI/pkg/audio"
	"SentinelAI/pkg/redis"
	"SentinelAI/pkg/s3"
	"SentinelAI/pkg/smtp"
	"SentinelAI/pkg/utils"
	websocketPkg "SentinelAI/pkg/websocket"
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type ServerOption func(*Server) error

type Server struct {
	engine        *fiber.App
	cfg           *AppConfig
	log           *logrus.Logger
	middleware    middleware.Middleware
	validator     *validator.Validate
	utils         utils.IUtils
	handlers      []handler
	redisServer   redis.IRedis
	smtpMailer    smtp.ItfSmtp
	s3Client      s3.ItfS3
	faceWebsocket websocketPkg.IWebsocket
	speaker       audio.Speaker

	hub       *feed.Hub
	source    *feed.LatestFrameSource
	scheduler *feed.Scheduler
	mailbox   *audio.Mailbox
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.utils == nil {
		server.utils = utils.New()
	}
	if server.middleware == nil {
		server.middleware = middleware.New(server.log, rate.Limit(server.cfg.RateLimitRPS), server.cfg.RateLimitBurst)
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithConfig(cfg *AppConfig) ServerOption {
	return func(s *Server) error {
		s.cfg = cfg
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithSMTPMailer(smtpMailer smtp.ItfSmtp) ServerOption {
	return func(s *Server) error {
		s.smtpMailer = smtpMailer
		return nil
	}
}

func WithWebSocket(webSocket websocketPkg.IWebsocket) ServerOption {
	return func(s *Server) error {
		s.faceWebsocket = webSocket
		return nil
	}
}

func WithSpeaker(speaker audio.Speaker) ServerOption {
	return func(s *Server) error {
		s.speaker = speaker
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		if s.cfg == nil {
			return fmt.Errorf("config must be loaded before middleware")
		}
		s.middleware = middleware.New(s.log, rate.Limit(s.cfg.RateLimitRPS), s.cfg.RateLimitBurst)
		return nil
	}
}

// WithS3Client enables snapshot archiving when a bucket is configured.
func WithS3Client() ServerOption {
	return func(s *Server) error {
		if s.cfg == nil || s.cfg.AWS.BucketName == "" {
			return nil
		}
		client, err := s3.New(s3.Options{
			Region:          s.cfg.AWS.Region,
			AccessKeyID:     s.cfg.AWS.AccessKeyID,
			SecretAccessKey: s.cfg.AWS.SecretAccessKey,
			BucketName:      s.cfg.AWS.BucketName,
		})
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

// RegisterHandler builds the detection pipeline and the violation domain,
// and starts their background workers on ctx.
func (s *Server) RegisterHandler(ctx context.Context) {
	// Violations
	violationRepo := violationRepository.New(s.log)

	var serviceOpts []violationService.Option
	if s.s3Client != nil || s.redisServer != nil || (s.smtpMailer != nil && s.cfg.SMTP.SecurityEmail != "") {
		archiver := violationService.NewArchiveWorker(s.log, violationService.ArchiveSinks{
			S3:            s.s3Client,
			Redis:         s.redisServer,
			Mailer:        s.smtpMailer,
			Channel:       s.cfg.Redis.ViolationChannel,
			SecurityEmail: s.cfg.SMTP.SecurityEmail,
			PresignTTL:    s.cfg.AWS.PresignTTL,
		}, s.cfg.ArchiveQueueSize)
		go archiver.Run(ctx)
		serviceOpts = append(serviceOpts, violationService.WithArchiver(archiver))
	}

	violationServices := violationService.NewViolationService(s.log, violationRepo, s.utils, s.cfg.Location, serviceOpts...)
	violationHandlers := violationHandler.New(s.log, s.validator, s.middleware, violationServices)

	// Detection
	var detector detectionService.FaceDetector
	if s.faceWebsocket != nil {
		detector = s.faceWebsocket
	}
	detectionServices := detectionService.NewDetectionService(s.log, detector, s.cfg.DetectionServiceConfig())

	speaker := s.speaker
	if speaker == nil {
		speaker = audio.NewLogSpeaker(s.log)
	}
	s.mailbox = audio.NewMailbox(s.log, speaker, s.cfg.Audio.SpeakTimeout)

	dispatcher := detectionService.NewAlertDispatcher(s.log, violationServices, s.mailbox, nil, s.cfg.AlertDispatcherConfig())

	s.hub = feed.NewHub()
	s.source = feed.NewLatestFrameSource(s.cfg.Feed.FrameMaxAge)
	s.scheduler = feed.NewScheduler(s.log, s.source, detectionServices, s.hub, dispatcher, feed.Settings{
		Interval:      s.cfg.Feed.TickInterval,
		DetectTimeout: s.cfg.Feed.DetectTimeout,
	})

	if s.redisServer != nil && s.cfg.Redis.StatusChannel != "" {
		go feed.RelayStatus(ctx, s.log, s.hub, s.redisServer, s.cfg.Redis.StatusChannel)
	}

	detectionHandlers := detectionHandler.New(ctx, s.log, s.validator, s.middleware, detectionServices, s.utils, s.scheduler, s.source, dispatcher)

	if s.cfg.Feed.AutoStart {
		s.scheduler.Start(ctx)
	}

	s.handlers = append(s.handlers, detectionHandlers, violationHandlers)
}

func (s *Server) Run() error {
	s.mountRoutes()

	return s.engine.Listen(fmt.Sprintf(":%s", s.cfg.Port))
}

func (s *Server) mountRoutes() {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware)

	s.setupHealthCheck()

	router := s.engine.Group("/api/v1")
	for _, h := range s.handlers {
		h.Start(router)
	}
}

// Shutdown stops the feed, lets a pending warning finish and closes the
// outbound connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.mailbox != nil {
		s.mailbox.Wait()
	}

	err := s.engine.ShutdownWithContext(ctx)

	if s.faceWebsocket != nil {
		s.faceWebsocket.CloseConnections()
	}
	if s.redisServer != nil {
		if cerr := s.redisServer.Close(); cerr != nil {
			s.log.Warnf("Error closing redis: %v", cerr)
		}
	}

	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		status := "UNKNOWN"
		if s.hub != nil {
			status = string(s.hub.Status())
		}
		detector := s.faceWebsocket != nil && s.faceWebsocket.IsConnected()

		return ctx.JSON(fiber.Map{
			"message":            "Server is Healthy!",
			"detection_status":   status,
			"detector_connected": detector,
			"feed_running":       s.scheduler != nil && s.scheduler.Running(),
		})
	})
}
