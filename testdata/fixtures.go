// Package testdata provides recorded poses for end-to-end tests.
package testdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/ayusman/shrimpwatch/internal/detector"
)

//go:embed poses/*.json
var posesFS embed.FS

// LoadPose loads a recorded pose by name, without the .json suffix.
func LoadPose(name string) (*detector.Pose, error) {
	data, err := posesFS.ReadFile(path.Join("poses", name+".json"))
	if err != nil {
		return nil, fmt.Errorf("load pose %s: %w", name, err)
	}

	var pose detector.Pose
	if err := json.Unmarshal(data, &pose); err != nil {
		return nil, fmt.Errorf("decode pose %s: %w", name, err)
	}
	return &pose, nil
}

// MustLoadPose is LoadPose for tests; it panics on error.
func MustLoadPose(name string) *detector.Pose {
	pose, err := LoadPose(name)
	if err != nil {
		panic(err)
	}
	return pose
}

// PoseNames lists the recorded poses in name order.
func PoseNames() ([]string, error) {
	entries, err := posesFS.ReadDir("poses")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, strings.TrimSuffix(e.Name(), ".json"))
		}
	}
	sort.Strings(names)
	return names, nil
}
