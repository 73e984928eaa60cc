package unityproject

import (
	"errors"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type metaFile struct {
	GUID string `yaml:"guid"`
}

func readMetaGUID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var meta metaFile
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return "", err
	}
	guid := strings.TrimSpace(meta.GUID)
	if guid == "" {
		return "", errors.New("meta file has no guid")
	}
	return guid, nil
}
