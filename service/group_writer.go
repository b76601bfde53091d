package service

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ludo-technologies/asmcluster/domain"
)

// TSVGroupWriter writes one "name<TAB>cluster" line per item in canonical
// item order, without a header.
type TSVGroupWriter struct{}

// NewGroupWriter creates a group writer
func NewGroupWriter() *TSVGroupWriter {
	return &TSVGroupWriter{}
}

// WriteGroups implements domain.GroupWriter
func (w *TSVGroupWriter) WriteGroups(out io.Writer, assignment *domain.ClusterAssignment) error {
	if len(assignment.Items) != len(assignment.Labels) {
		return domain.NewOutputError(
			fmt.Sprintf("%d items but %d labels", len(assignment.Items), len(assignment.Labels)), nil)
	}

	bw := bufio.NewWriter(out)
	for i, item := range assignment.Items {
		if _, err := fmt.Fprintf(bw, "%s\t%d\n", item.Name, assignment.Labels[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}
