package client

import (
	"context"

	"github.com/menta2k/body-analyzer/pkg/types"
)

// PoseClient is a vision-model backend able to locate pose landmarks
type PoseClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	DetectPose(ctx context.Context, model, prompt, imgB64 string) (*PoseResponse, error)
}

// PoseResponse is the structured answer of a pose backend
type PoseResponse struct {
	Detected   bool             `json:"detected"`
	Confidence float64          `json:"confidence"`
	Landmarks  []types.Landmark `json:"landmarks"`
}
