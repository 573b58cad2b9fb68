package pose

import (
	"encoding/json"
	"fmt"
	"os"
)

// ParseLandmarkSet decodes a serialized LandmarkSet, as produced by the
// provider or captured as a test fixture.
func ParseLandmarkSet(data []byte) (*LandmarkSet, error) {
	var set LandmarkSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("error decoding landmark set: %w", err)
	}
	if len(set.Points) == 0 {
		return nil, ErrNoDetection
	}
	return &set, nil
}

// LoadLandmarkSet reads a LandmarkSet fixture file from disk.
func LoadLandmarkSet(path string) (*LandmarkSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading landmark file %s: %w", path, err)
	}
	return ParseLandmarkSet(data)
}
