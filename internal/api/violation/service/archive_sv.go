package violationService

import (
	"SentinelAI/internal/api/violation"
	"SentinelAI/internal/entity"
	"SentinelAI/pkg/redis"
	"SentinelAI/pkg/s3"
	"SentinelAI/pkg/smtp"
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultArchiveBuffer  = 64
	defaultArchiveTimeout = 30 * time.Second
)

// ArchiveSinks lists the optional destinations for recorded violations. A
// nil client or empty target disables that destination.
type ArchiveSinks struct {
	S3            s3.ItfS3
	Redis         redis.IRedis
	Mailer        smtp.ItfSmtp
	Channel       string
	SecurityEmail string
	PresignTTL    time.Duration
}

// ArchiveWorker drains recorded violations into the configured sinks on a
// single goroutine. Failures are logged and not retried.
type ArchiveWorker struct {
	log     *logrus.Logger
	sinks   ArchiveSinks
	queue   chan entity.ViolationRecord
	timeout time.Duration
}

func NewArchiveWorker(log *logrus.Logger, sinks ArchiveSinks, buffer int) *ArchiveWorker {
	if buffer <= 0 {
		buffer = defaultArchiveBuffer
	}

	return &ArchiveWorker{
		log:     log,
		sinks:   sinks,
		queue:   make(chan entity.ViolationRecord, buffer),
		timeout: defaultArchiveTimeout,
	}
}

func (a *ArchiveWorker) Enqueue(record entity.ViolationRecord) bool {
	select {
	case a.queue <- record:
		return true
	default:
		return false
	}
}

// Run blocks until ctx is cancelled.
func (a *ArchiveWorker) Run(ctx context.Context) {
	a.log.Info("Violation archiver started")
	defer a.log.Info("Violation archiver stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case record := <-a.queue:
			a.archive(ctx, record)
		}
	}
}

func (a *ArchiveWorker) archive(parent context.Context, record entity.ViolationRecord) {
	ctx, cancel := context.WithTimeout(parent, a.timeout)
	defer cancel()

	fields := logrus.Fields{"violation_id": record.ID}

	var key, location, link string
	if a.sinks.S3 != nil {
		key = s3.SnapshotKey(record.ID)
		loc, err := a.sinks.S3.UploadSnapshot(ctx, key, record.SnapshotImage, "image/jpeg")
		if err != nil {
			a.log.WithFields(fields).WithError(err).Error("Failed to upload violation snapshot")
			key = ""
		} else {
			location, link = loc, loc
			if a.sinks.PresignTTL > 0 {
				if signed, err := a.sinks.S3.PresignUrl(key, a.sinks.PresignTTL); err == nil {
					link = signed
				} else {
					a.log.WithFields(fields).WithError(err).Warn("Failed to presign snapshot URL")
				}
			}
		}
	}

	if a.sinks.Redis != nil && a.sinks.Channel != "" {
		event := violation.Event{
			ID:          record.ID,
			Timestamp:   record.Timestamp.UnixMilli(),
			Location:    record.Location,
			Status:      string(record.Status),
			Confidence:  record.Confidence,
			SnapshotKey: key,
			SnapshotURL: location,
		}
		if err := a.sinks.Redis.Publish(ctx, a.sinks.Channel, event); err != nil {
			a.log.WithFields(fields).WithError(err).Error("Failed to publish violation event")
		}
	}

	if a.sinks.Mailer != nil && a.sinks.SecurityEmail != "" {
		alert := smtp.ViolationAlert{
			ID:          record.ID,
			Timestamp:   record.Timestamp,
			Location:    record.Location,
			Confidence:  record.Confidence,
			SnapshotURL: link,
			Snapshot:    record.SnapshotImage,
		}
		if err := a.sinks.Mailer.SendViolationAlert(a.sinks.SecurityEmail, alert); err != nil {
			a.log.WithFields(fields).WithError(err).Error("Failed to email security")
		}
	}

	a.log.WithFields(fields).Debug("Violation archived")
}
