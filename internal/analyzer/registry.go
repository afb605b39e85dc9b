package analyzer

import "fmt"

// NewDetector creates a detector based on the specified variant
func NewDetector(variant string) (Detector, error) {
	switch variant {
	case "coverage", "":
		return NewCoverageDetector(), nil
	case "luma":
		return &CoverageDetector{Threshold: 128, MinArea: 1, Channel: Luma}, nil
	default:
		return nil, fmt.Errorf("unknown detector variant: %s", variant)
	}
}
