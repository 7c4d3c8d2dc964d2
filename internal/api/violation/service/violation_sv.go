package violationService

import (
	"SentinelAI/internal/api/violation"
	"SentinelAI/internal/entity"
	contextPkg "SentinelAI/pkg/context"
	"context"

	"github.com/sirupsen/logrus"
)

func (s *violationService) Record(ctx context.Context, snapshot []byte, confidence float64) (entity.ViolationRecord, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if len(snapshot) == 0 {
		return entity.ViolationRecord{}, violation.ErrEmptySnapshot
	}

	now := s.now()
	id, err := s.utils.NewULIDFromTimestamp(now)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate ULID")
		return entity.ViolationRecord{}, err
	}

	record := entity.ViolationRecord{
		ID:            id,
		Timestamp:     now,
		SnapshotImage: snapshot,
		Location:      s.location,
		Status:        entity.ViolationPending,
		Confidence:    confidence,
	}

	if err := s.violationRepository.Insert(ctx, record); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to store violation")
		return entity.ViolationRecord{}, err
	}

	if s.archiver != nil && !s.archiver.Enqueue(record) {
		s.log.WithFields(logrus.Fields{
			"request_id":   requestID,
			"violation_id": record.ID,
		}).Warn("Archive queue full, violation not archived")
	}

	s.log.WithFields(logrus.Fields{
		"request_id":   requestID,
		"violation_id": record.ID,
		"confidence":   confidence,
		"location":     record.Location,
	}).Info("Violation recorded")

	return record, nil
}

func (s *violationService) RecordEntry(ctx context.Context, hasMask bool) error {
	if err := s.violationRepository.AddEntry(ctx, hasMask, s.now()); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("Failed to record entry")
		return err
	}

	return nil
}

func (s *violationService) List(ctx context.Context) ([]entity.ViolationRecord, error) {
	return s.violationRepository.List(ctx)
}

func (s *violationService) ListByStatus(ctx context.Context, status entity.ViolationStatus) ([]entity.ViolationRecord, error) {
	switch status {
	case entity.ViolationPending, entity.ViolationReviewed:
	default:
		return nil, violation.ErrInvalidStatus
	}

	return s.violationRepository.ListByStatus(ctx, status)
}

func (s *violationService) Stats(ctx context.Context) (entity.ComplianceStats, error) {
	return s.violationRepository.Stats(ctx, s.now())
}
