package violationService

import (
	violationRepository "SentinelAI/internal/api/violation/repository"
	"SentinelAI/internal/entity"
	"SentinelAI/pkg/utils"
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type IViolationService interface {
	Record(ctx context.Context, snapshot []byte, confidence float64) (entity.ViolationRecord, error)
	RecordEntry(ctx context.Context, hasMask bool) error
	List(ctx context.Context) ([]entity.ViolationRecord, error)
	ListByStatus(ctx context.Context, status entity.ViolationStatus) ([]entity.ViolationRecord, error)
	Stats(ctx context.Context) (entity.ComplianceStats, error)
}

// Archiver receives every recorded violation. Enqueue must not block.
type Archiver interface {
	Enqueue(record entity.ViolationRecord) bool
}

type violationService struct {
	log                 *logrus.Logger
	violationRepository violationRepository.Repository
	utils               utils.IUtils
	archiver            Archiver
	location            string
	now                 func() time.Time
}

type Option func(*violationService)

func WithArchiver(a Archiver) Option {
	return func(s *violationService) {
		s.archiver = a
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *violationService) {
		s.now = now
	}
}

func NewViolationService(
	log *logrus.Logger,
	vr violationRepository.Repository,
	utils utils.IUtils,
	location string,
	opts ...Option,
) IViolationService {
	s := &violationService{
		log:                 log,
		violationRepository: vr,
		utils:               utils,
		location:            location,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
