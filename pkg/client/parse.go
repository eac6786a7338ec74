package client

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInline   = regexp.MustCompile(`(?m)//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// ParsePoseResponse parses the JSON answer of a vision model. Answers that
// carry no usable JSON produce an undetected response instead of an error.
func ParsePoseResponse(raw string) (*PoseResponse, error) {
	raw = SanitizeModelJSON(raw)

	if !strings.HasPrefix(raw, "{") {
		return &PoseResponse{Detected: false}, nil
	}

	var resp PoseResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return &PoseResponse{Detected: false}, nil
	}

	// Some models omit the flag and only send points
	if !resp.Detected && len(resp.Landmarks) > 0 && resp.Confidence == 0 {
		resp.Detected = true
	}
	return &resp, nil
}

// SanitizeModelJSON removes code fences, comments, and trailing commas from
// a model answer and keeps only the outermost object
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
