package entity

import "time"

type ViolationStatus string

const (
	ViolationPending  ViolationStatus = "PENDING"
	ViolationReviewed ViolationStatus = "REVIEWED"
)

type ViolationRecord struct {
	ID            string          `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	SnapshotImage []byte          `json:"snapshot_image"`
	Location      string          `json:"location"`
	Status        ViolationStatus `json:"status"`
	Confidence    float64         `json:"confidence"`
}

type HourlyTraffic struct {
	Hour  string `json:"hour"`
	Count int    `json:"count"`
}

type ComplianceStats struct {
	TotalEntries   int             `json:"total_entries"`
	MasksDetected  int             `json:"masks_detected"`
	Violations     int             `json:"violations"`
	ComplianceRate int             `json:"compliance_rate"`
	HourlyTraffic  []HourlyTraffic `json:"hourly_traffic"`
}
