package locoracle

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nanotrace/nanotrace/nterr"
)

// TableOracle realizes the spec's "table variant": a sibling binary,
// conventionally named "<producer>_loc", exposes the loc_id -> location
// mapping as a callable lookup. nanotrace invokes it once per loc id
// with the id as its sole argument and parses one line of
// "file:line[:function]" from stdout.
type TableOracle struct {
	siblingPath string
}

// SiblingPath returns the conventional sibling decoder path for a
// given producer binary path, e.g. "/opt/app/server" -> "/opt/app/server_loc".
func SiblingPath(producerBinaryPath string) string {
	dir, base := filepath.Split(producerBinaryPath)
	return filepath.Join(dir, base+"_loc")
}

// NewTableOracle opens a TableOracle bound to siblingPath. It does not
// execute the sibling eagerly, but it checks that the sibling exists
// and returns MissingLocDecoder here if it does not, so callers get
// that error up front (per S6). A later failed Lookup reports
// ErrNotFound instead.
func NewTableOracle(siblingPath string) (*TableOracle, error) {
	if _, err := exec.LookPath(siblingPath); err != nil {
		if abs, statErr := filepath.Abs(siblingPath); statErr == nil {
			if _, err2 := exec.LookPath(abs); err2 == nil {
				return &TableOracle{siblingPath: abs}, nil
			}
		}
		return nil, fmt.Errorf("%w: sibling decoder %s: %v", nterr.ErrMissingLocDecoder, siblingPath, err)
	}
	return &TableOracle{siblingPath: siblingPath}, nil
}

// Lookup execs the sibling binary with locID as its sole argument and
// parses "file:line[:function]" from its first line of stdout.
func (o *TableOracle) Lookup(locID uint32) (Location, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, o.siblingPath, strconv.FormatUint(uint64(locID), 10))
	out, err := cmd.Output()
	if err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	if !scanner.Scan() {
		return Location{}, ErrNotFound
	}
	return parseLocationLine(scanner.Text())
}

func parseLocationLine(line string) (Location, error) {
	parts := strings.SplitN(strings.TrimSpace(line), ":", 3)
	if len(parts) < 2 {
		return Location{}, fmt.Errorf("%w: malformed location line %q", ErrNotFound, line)
	}
	lineNo, err := strconv.Atoi(parts[1])
	if err != nil {
		return Location{}, fmt.Errorf("%w: malformed line number in %q", ErrNotFound, line)
	}
	loc := Location{File: parts[0], Line: lineNo}
	if len(parts) == 3 {
		loc.Func = parts[2]
	}
	return loc, nil
}
