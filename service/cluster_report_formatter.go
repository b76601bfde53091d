package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ludo-technologies/asmcluster/domain"
	"github.com/ludo-technologies/asmcluster/internal/version"
)

// ClusterReport is the serialized form of a cluster run
type ClusterReport struct {
	Metadata    map[string]string     `json:"metadata" yaml:"metadata"`
	GeneratedAt time.Time             `json:"generated_at" yaml:"generated_at"`
	Folders     []domain.FolderResult `json:"folders" yaml:"folders"`
	DurationMS  int64                 `json:"duration_ms" yaml:"duration_ms"`
}

// ClusterReportFormatterImpl implements the ClusterReportFormatter interface
type ClusterReportFormatterImpl struct {
	now func() time.Time
}

// NewClusterReportFormatter creates a report formatter
func NewClusterReportFormatter() *ClusterReportFormatterImpl {
	return &ClusterReportFormatterImpl{now: time.Now}
}

// Format renders resp in the requested format
func (f *ClusterReportFormatterImpl) Format(resp *domain.ClusterResponse, format domain.OutputFormat, w io.Writer) error {
	switch format {
	case domain.OutputFormatText, "":
		return f.formatText(resp, w)
	case domain.OutputFormatJSON:
		return WriteJSON(w, f.report(resp))
	case domain.OutputFormatYAML:
		return WriteYAML(w, f.report(resp))
	case domain.OutputFormatCSV:
		return f.formatCSV(resp, w)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

func (f *ClusterReportFormatterImpl) report(resp *domain.ClusterResponse) ClusterReport {
	return ClusterReport{
		Metadata:    version.Metadata(),
		GeneratedAt: f.now().UTC(),
		Folders:     resp.Folders,
		DurationMS:  resp.Duration.Milliseconds(),
	}
}

func (f *ClusterReportFormatterImpl) formatText(resp *domain.ClusterResponse, w io.Writer) error {
	var b strings.Builder
	b.WriteString(FormatHeader("Assembly Clustering Summary"))
	for _, folder := range resp.Folders {
		b.WriteString("\n")
		b.WriteString(FormatLabel("Folder", folder.Folder))
		b.WriteString(FormatLabel("Assemblies", humanize.Comma(int64(len(folder.Assignment.Items)))))
		b.WriteString(FormatLabel("Comparisons", humanize.Comma(int64(folder.Stats.TotalPairs))))
		if folder.Stats.Skipped > 0 {
			b.WriteString(FormatLabel("Reused from store", humanize.Comma(int64(folder.Stats.Skipped))))
		}
		if folder.Stats.Failed > 0 {
			b.WriteString(FormatLabel("Failed comparisons", humanize.Comma(int64(folder.Stats.Failed))))
		}
		b.WriteString(FormatLabel("Threshold", strconv.FormatFloat(folder.Threshold, 'g', -1, 64)))
		b.WriteString(FormatLabel("Clusters", len(folder.Groups)))
		if largest := largestGroup(folder.Groups); largest > 0 {
			b.WriteString(FormatLabel("Largest cluster", largest))
		}
		b.WriteString(FormatLabel("Output", folder.OutputPath))
		b.WriteString(FormatLabel("Time", folder.Duration.Round(time.Millisecond)))
	}
	if len(resp.Folders) > 1 {
		b.WriteString("\n")
		b.WriteString(FormatLabel("Total time", resp.Duration.Round(time.Millisecond)))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (f *ClusterReportFormatterImpl) formatCSV(resp *domain.ClusterResponse, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"folder", "name", "path", "cluster"}); err != nil {
		return domain.NewOutputError("failed to write CSV header", err)
	}
	for _, folder := range resp.Folders {
		for i, item := range folder.Assignment.Items {
			row := []string{folder.Folder, item.Name, item.Path, strconv.Itoa(folder.Assignment.Labels[i])}
			if err := cw.Write(row); err != nil {
				return domain.NewOutputError(fmt.Sprintf("failed to write CSV row for %s", item.Name), err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return domain.NewOutputError("failed to flush CSV", err)
	}
	return nil
}

func largestGroup(groups []domain.ClusterGroup) int {
	largest := 0
	for _, g := range groups {
		largest = max(largest, len(g.Members))
	}
	return largest
}
