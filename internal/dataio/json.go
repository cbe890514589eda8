package dataio

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteJSON writes v as indented JSON, replacing path atomically
func WriteJSON(path string, v interface{}) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write file %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}
