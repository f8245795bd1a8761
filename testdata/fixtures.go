// Package testdata provides recorded pose fixtures for tests.
package testdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/ayusman/howlong/internal/detector"
)

//go:embed poses/*.json
var posesFS embed.FS

// LoadPose loads a pose fixture by name, e.g. "neck_touch".
func LoadPose(name string) (*detector.Pose, error) {
	data, err := posesFS.ReadFile("poses/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load pose %s: %w", name, err)
	}

	var p detector.Pose
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode pose %s: %w", name, err)
	}
	return &p, nil
}

// MustLoadPose is LoadPose for test setup; it panics on error.
func MustLoadPose(name string) *detector.Pose {
	p, err := LoadPose(name)
	if err != nil {
		panic(err)
	}
	return p
}

// PoseNames lists the available pose fixtures.
func PoseNames() []string {
	entries, err := posesFS.ReadDir("poses")
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())))
	}
	return names
}

// Sequence repeats each named pose count times, in order.
func Sequence(steps ...Step) ([]*detector.Pose, error) {
	var poses []*detector.Pose
	for _, s := range steps {
		p, err := LoadPose(s.Pose)
		if err != nil {
			return nil, err
		}
		for i := 0; i < s.Count; i++ {
			poses = append(poses, p)
		}
	}
	return poses, nil
}

// Step is one segment of a pose sequence.
type Step struct {
	Pose  string
	Count int
}
