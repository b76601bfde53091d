package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/ludo-technologies/asmcluster/domain"
	"github.com/ludo-technologies/asmcluster/internal/constants"
	"github.com/ludo-technologies/asmcluster/internal/logging"
)

// maxDiagnosticBytes bounds the stderr excerpt kept in a failure message
const maxDiagnosticBytes = 512

// MashOracleOptions configures the mash invoker
type MashOracleOptions struct {
	Binary    string
	ExtraArgs []string
	// Timeout bounds one invocation; zero disables the deadline
	Timeout time.Duration
	Logger  *slog.Logger
}

// MashOracle compares two assemblies by running `mash dist`. It is safe for
// concurrent use; every call spawns its own process.
type MashOracle struct {
	binary    string
	extraArgs []string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewMashOracle creates an oracle from opts, filling unset values with defaults
func NewMashOracle(opts MashOracleOptions) *MashOracle {
	binary := opts.Binary
	if binary == "" {
		binary = constants.DefaultMashBinary
	}
	return &MashOracle{
		binary:    binary,
		extraArgs: append([]string(nil), opts.ExtraArgs...),
		timeout:   opts.Timeout,
		logger:    logging.OrDefault(opts.Logger, "oracle"),
	}
}

// Available checks that the binary can be found on PATH
func (o *MashOracle) Available() error {
	if _, err := exec.LookPath(o.binary); err != nil {
		return domain.NewConfigError(fmt.Sprintf("mash binary '%s' not found", o.binary), err)
	}
	return nil
}

// Compare runs `mash dist [extra args] a b` and parses its first output line
func (o *MashOracle) Compare(ctx context.Context, a, b domain.Item) domain.PairResult {
	result := domain.PairResult{A: a, B: b}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	args := make([]string, 0, len(o.extraArgs)+3)
	args = append(args, "dist")
	args = append(args, o.extraArgs...)
	args = append(args, a.Path, b.Path)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, o.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Bound the wait for output pipes held open by children of a killed process
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		result.Message = o.describeFailure(ctx, err, stderr.Bytes())
		return result
	}

	row, err := ParseMashOutput(stdout.Bytes())
	if err != nil {
		result.Message = err.Error()
		return result
	}

	o.logger.Debug("mash dist finished",
		slog.String("item_a", a.Name),
		slog.String("item_b", b.Name),
		slog.Float64("distance", row.Distance),
		slog.Duration("elapsed", time.Since(start)))

	result.Distance = row.Distance
	result.DistanceText = row.DistanceText
	result.PValue = row.PValue
	result.SharedHashes = row.SharedHashes
	result.OK = true
	return result
}

func (o *MashOracle) describeFailure(ctx context.Context, err error, stderr []byte) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("mash dist timed out after %s", o.timeout)
	}
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Sprintf("mash binary '%s' not found: %v", o.binary, err)
	}

	msg := strings.TrimSpace(string(stderr))
	if len(msg) > maxDiagnosticBytes {
		msg = msg[:maxDiagnosticBytes] + "..."
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if msg == "" {
			return fmt.Sprintf("mash dist exited with status %d", exitErr.ExitCode())
		}
		return fmt.Sprintf("mash dist exited with status %d: %s", exitErr.ExitCode(), msg)
	}
	return fmt.Sprintf("mash dist failed: %v", err)
}

// MashDistRow is one parsed line of `mash dist` output
type MashDistRow struct {
	Distance float64
	// DistanceText is the distance column as mash printed it
	DistanceText string
	PValue       string
	SharedHashes string
}

// ParseMashOutput reads the first line of `mash dist` output:
// reference, query, distance, p-value, shared hashes. Only the distance is
// required; the remaining columns are returned verbatim when present.
func ParseMashOutput(out []byte) (MashDistRow, error) {
	var row MashDistRow
	text := strings.TrimLeft(string(out), "\r\n")
	line, _, _ := strings.Cut(text, "\n")
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return row, errors.New("mash dist produced no output")
	}

	fields := strings.Split(line, "\t")
	if len(fields) < 3 {
		return row, fmt.Errorf("unexpected mash output, expected at least 3 tab-separated fields: %q", line)
	}

	raw := strings.TrimSpace(fields[2])
	distance, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return row, fmt.Errorf("invalid distance %q in mash output: %w", fields[2], err)
	}
	if math.IsNaN(distance) || math.IsInf(distance, 0) || distance < 0 {
		return row, fmt.Errorf("invalid distance %v in mash output", distance)
	}
	row.Distance = distance
	row.DistanceText = raw

	if len(fields) > 3 {
		row.PValue = strings.TrimSpace(fields[3])
	}
	if len(fields) > 4 {
		row.SharedHashes = strings.TrimSpace(fields[4])
	}
	return row, nil
}
