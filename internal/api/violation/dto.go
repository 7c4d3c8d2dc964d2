package violation

import "SentinelAI/internal/entity"

type ListQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=PENDING REVIEWED"`
}

type ListResponse struct {
	Violations []entity.ViolationRecord `json:"violations"`
	Total      int                      `json:"total"`
}

type EntryRequest struct {
	HasMask *bool `json:"has_mask" validate:"required"`
}

// Event is the payload published for each archived violation. The snapshot
// itself is referenced by its object key, never inlined.
type Event struct {
	ID          string  `json:"id"`
	Timestamp   int64   `json:"timestamp"`
	Location    string  `json:"location"`
	Status      string  `json:"status"`
	Confidence  float64 `json:"confidence"`
	SnapshotKey string  `json:"snapshot_key,omitempty"`
	SnapshotURL string  `json:"snapshot_url,omitempty"`
}
