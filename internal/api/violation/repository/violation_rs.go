package violationRepository

import (
	"SentinelAI/internal/entity"
	"context"
	"math"
	"sort"
	"time"
)

func (r *repository) Insert(ctx context.Context, record entity.ViolationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	record.SnapshotImage = append([]byte(nil), record.SnapshotImage...)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, record)
	r.totalEntries++
	r.violations++
	r.countTraffic(record.Timestamp)

	r.log.WithField("violation_id", record.ID).Debug("Violation stored")

	return nil
}

func (r *repository) AddEntry(ctx context.Context, hasMask bool, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.totalEntries++
	if hasMask {
		r.masksDetected++
	}
	r.countTraffic(at)

	return nil
}

func (r *repository) List(ctx context.Context) ([]entity.ViolationRecord, error) {
	return r.filter(ctx, func(entity.ViolationRecord) bool { return true })
}

func (r *repository) ListByStatus(ctx context.Context, status entity.ViolationStatus) ([]entity.ViolationRecord, error) {
	return r.filter(ctx, func(v entity.ViolationRecord) bool { return v.Status == status })
}

func (r *repository) filter(ctx context.Context, keep func(entity.ViolationRecord) bool) ([]entity.ViolationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	out := make([]entity.ViolationRecord, 0, len(r.records))
	for i := len(r.records) - 1; i >= 0; i-- {
		v := r.records[i]
		if keep(v) {
			v.SnapshotImage = append([]byte(nil), v.SnapshotImage...)
			out = append(out, v)
		}
	}
	r.mu.Unlock()

	// Newest first. Walking backwards keeps later inserts ahead on equal timestamps.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	return out, nil
}

func (r *repository) Stats(ctx context.Context, now time.Time) (entity.ComplianceStats, error) {
	if err := ctx.Err(); err != nil {
		return entity.ComplianceStats{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stats := entity.ComplianceStats{
		TotalEntries:   r.totalEntries,
		MasksDetected:  r.masksDetected,
		Violations:     r.violations,
		ComplianceRate: ComplianceRate(r.masksDetected, r.totalEntries),
		HourlyTraffic:  make([]entity.HourlyTraffic, 0, trafficWindow),
	}

	current := hourStart(now)
	for i := trafficWindow - 1; i >= 0; i-- {
		start := hourStart(current.Add(-time.Duration(i) * time.Hour))
		b := r.traffic[start.Hour()]
		if b.count == 0 || !b.start.Equal(start) {
			continue
		}
		stats.HourlyTraffic = append(stats.HourlyTraffic, entity.HourlyTraffic{
			Hour:  start.Format("15:04"),
			Count: b.count,
		})
	}

	return stats, nil
}

// ComplianceRate is masks/total as a rounded percentage, 100 with no entries.
func ComplianceRate(masks, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(masks) / float64(total) * 100))
}

// countTraffic must be called with r.mu held.
func (r *repository) countTraffic(at time.Time) {
	start := hourStart(at)
	b := &r.traffic[start.Hour()]
	if !b.start.Equal(start) {
		b.start = start
		b.count = 0
	}
	b.count++
}

func hourStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}
