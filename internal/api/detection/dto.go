package detection

import "SentinelAI/internal/entity"

// StatusResponse carries the last published status. FrameReady is false
// while no fresh camera frame is available, in which case the status is the
// one from the last processed frame.
type StatusResponse struct {
	Status     entity.DetectionStatus  `json:"status"`
	Result     *entity.DetectionResult `json:"result"`
	FrameReady bool                    `json:"frame_ready"`
}

type AnalyzeRequest struct {
	ImageBase64 string `json:"image_base64" validate:"required"`
}

type AnalyzeResponse struct {
	Status entity.DetectionStatus  `json:"status"`
	Result *entity.DetectionResult `json:"result"`
	Width  int                     `json:"width"`
	Height int                     `json:"height"`
}

type SettingsRequest struct {
	AudioEnabled *bool `json:"audio_enabled" validate:"required"`
}

type SettingsResponse struct {
	AudioEnabled bool `json:"audio_enabled"`
}

type FeedStateResponse struct {
	Running bool `json:"running"`
}
