package platform

import (
	"fmt"
	"strings"
)

// Quality represents the requested audio quality level.
// Connectors map it onto their own quality identifiers.
type Quality int

const (
	// QualityStandard represents reduced bitrate lossy audio.
	QualityStandard Quality = iota

	// QualityHigh represents high bitrate lossy audio (typically 320 kbps).
	QualityHigh

	// QualityLossless represents lossless audio (typically FLAC).
	QualityLossless
)

// String returns the string representation of the Quality enum.
func (q Quality) String() string {
	switch q {
	case QualityStandard:
		return "standard"
	case QualityHigh:
		return "high"
	case QualityLossless:
		return "lossless"
	default:
		return "unknown"
	}
}

// ParseQuality converts a string to Quality enum.
// Empty input selects QualityLossless.
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard":
		return QualityStandard, nil
	case "high":
		return QualityHigh, nil
	case "lossless", "":
		return QualityLossless, nil
	default:
		return QualityLossless, fmt.Errorf("%w: %s", ErrInvalidQuality, s)
	}
}
