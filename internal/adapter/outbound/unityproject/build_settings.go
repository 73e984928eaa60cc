package unityproject

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"eventtracker/internal/adapter/outbound/unityyaml"
)

// buildScenes returns the enabled scenes of the build settings in order.
// Projects without build settings have no scenes in the build.
func (p *Project) buildScenes() ([]string, error) {
	data, err := os.ReadFile(p.abs(buildSettingsPath))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return parseBuildScenes(data), nil
}

func parseBuildScenes(data []byte) []string {
	var scenes []string
	enabled := false
	for _, line := range unityyaml.SplitLines(data) {
		trimmed := strings.TrimLeft(line, " ")
		if entry, ok := strings.CutPrefix(trimmed, "- "); ok {
			enabled = false
			trimmed = entry
		}
		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "enabled":
			enabled = value == "1"
		case "path":
			if enabled && value != "" {
				scenes = append(scenes, value)
			}
		}
	}
	return scenes
}
