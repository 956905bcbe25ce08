// Package output persists finalized result sets to disk.
package output

import (
	"encoding/json"
	"fmt"
	"os"

	"DiscussionScanner/internal/domain"
	"DiscussionScanner/internal/ports"
)

// JSONWriter writes the ranked discussions as one indented JSON document.
// Timestamps serialize as RFC 3339 text.
type JSONWriter struct{}

var _ ports.ResultWriter = JSONWriter{}

// Write replaces the file at path with the serialized discussions. An
// empty result set still produces a valid empty array document.
func (JSONWriter) Write(path string, discussions []domain.Discussion) error {
	if discussions == nil {
		discussions = []domain.Discussion{}
	}

	data, err := json.MarshalIndent(discussions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal discussions: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
