package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ludo-technologies/asmcluster/domain"
)

// FileOutputWriter writes reports to files or provided writers.
type FileOutputWriter struct {
	status io.Writer // where to print status messages (typically stderr)
}

// NewFileOutputWriter creates a new FileOutputWriter.
func NewFileOutputWriter(status io.Writer) *FileOutputWriter {
	if status == nil {
		status = os.Stderr
	}
	return &FileOutputWriter{status: status}
}

// Write implements domain.ReportWriter. A file is first written next to its
// destination and renamed into place, so a failed write never leaves a
// truncated report behind.
func (w *FileOutputWriter) Write(writer io.Writer, outputPath string, format domain.OutputFormat, writeFunc func(io.Writer) error) error {
	if outputPath == "" {
		if err := writeFunc(writer); err != nil {
			return domain.NewOutputError("failed to write output", err)
		}
		return nil
	}

	if err := WriteFileAtomic(outputPath, writeFunc); err != nil {
		return err
	}

	absPath, err := filepath.Abs(outputPath)
	if err != nil {
		absPath = outputPath
	}
	if format == domain.OutputFormatText {
		fmt.Fprintf(w.status, "Wrote %s\n", absPath)
	} else {
		fmt.Fprintf(w.status, "%s report generated: %s\n", strings.ToUpper(string(format)), absPath)
	}
	return nil
}

// WriteFileAtomic writes path through a temporary sibling file
func WriteFileAtomic(path string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.NewOutputError(fmt.Sprintf("failed to create output directory: %s", dir), err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return domain.NewOutputError(fmt.Sprintf("failed to create output file: %s", path), err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := writeFunc(tmp); err != nil {
		_ = tmp.Close()
		return domain.NewOutputError("failed to write output", err)
	}
	if err := tmp.Close(); err != nil {
		return domain.NewOutputError(fmt.Sprintf("failed to close output file: %s", path), err)
	}
	_ = os.Chmod(tmpName, 0o644)
	if err := os.Rename(tmpName, path); err != nil {
		return domain.NewOutputError(fmt.Sprintf("failed to move output into place: %s", path), err)
	}
	return nil
}
