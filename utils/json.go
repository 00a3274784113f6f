package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Marshal generic struct to JSON
func MarshalToJSON[T any](input T) (string, error) {
	jsonData, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

// Unmarshal JSON to generic struct
func UnmarshalFromJSON[T any](data []byte, output *T) error {
	return json.Unmarshal(data, output)
}

// WriteJSONFile writes input as indented JSON to path.
func WriteJSONFile[T any](path string, input T) error {
	jsonData, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Clean(path), append(jsonData, '\n'), 0o640)
}
