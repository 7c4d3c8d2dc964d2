package violationRepository

import (
	"SentinelAI/internal/entity"
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const trafficWindow = 24

type Repository interface {
	Insert(ctx context.Context, record entity.ViolationRecord) error
	AddEntry(ctx context.Context, hasMask bool, at time.Time) error
	List(ctx context.Context) ([]entity.ViolationRecord, error)
	ListByStatus(ctx context.Context, status entity.ViolationStatus) ([]entity.ViolationRecord, error)
	Stats(ctx context.Context, now time.Time) (entity.ComplianceStats, error)
}

type hourBucket struct {
	start time.Time
	count int
}

// repository keeps records and counters in memory behind a single mutex so
// every mutation updates both atomically.
type repository struct {
	log *logrus.Logger

	mu            sync.Mutex
	records       []entity.ViolationRecord
	totalEntries  int
	masksDetected int
	violations    int
	traffic       [trafficWindow]hourBucket
}

func New(log *logrus.Logger) Repository {
	return &repository{
		log: log,
	}
}
