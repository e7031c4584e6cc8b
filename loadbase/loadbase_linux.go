//go:build linux

package loadbase

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nanotrace/nanotrace/nterr"
)

// captureImpl resolves the running executable's own path and scans
// /proc/self/maps for the first mapping backed by that path with read
// permission — the region containing the binary's read-only data,
// the same "ask the loader for a known image's base" idea as dladdr
// on a traditional C producer, realized via /proc instead.
func captureImpl() (uint64, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("%w: resolve executable: %v", nterr.ErrLoadBaseUnknown, err)
	}

	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return 0, fmt.Errorf("%w: open /proc/self/maps: %v", nterr.ErrLoadBaseUnknown, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		if fields[5] != exe {
			continue
		}
		perms := fields[1]
		if !strings.Contains(perms, "r") {
			continue
		}
		addrRange := fields[0]
		startStr, _, ok := strings.Cut(addrRange, "-")
		if !ok {
			continue
		}
		base, err := strconv.ParseUint(startStr, 16, 64)
		if err != nil {
			continue
		}
		return base, nil
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("%w: scan /proc/self/maps: %v", nterr.ErrLoadBaseUnknown, err)
	}
	return 0, fmt.Errorf("%w: no mapping found for %s", nterr.ErrLoadBaseUnknown, exe)
}
