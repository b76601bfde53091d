package service

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/asmcluster/domain"
)

// WriteJSON writes indented JSON for the given value to the writer.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return domain.NewOutputError("failed to encode JSON", err)
	}
	return nil
}

// WriteYAML writes YAML for the given value to the writer.
func WriteYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return domain.NewOutputError("failed to encode YAML", err)
	}
	return nil
}

// Standard formatting constants
const (
	HeaderWidth = 40
	LabelWidth  = 22
)

// FormatHeader returns a title line underlined to HeaderWidth
func FormatHeader(title string) string {
	return title + "\n" + strings.Repeat("=", HeaderWidth) + "\n"
}

// FormatLabel returns a left-aligned "label: value" line
func FormatLabel(label string, value interface{}) string {
	return fmt.Sprintf("%-*s %v\n", LabelWidth, label+":", value)
}
