package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// resolveConflict returns the destination to use for a move. When the target
// is free it is returned as-is. When it is occupied, skipConflicts selects
// between skipping the item and trying numbered alternates: report.pdf
// becomes report_1.pdf, then report_2.pdf, until a free name is found. The
// candidate order is fixed, so repeated runs over the same tree pick the
// same names.
func resolveConflict(target string, skipConflicts bool) (dest string, skip bool, err error) {
	if err := parentCreatable(target); err != nil {
		return "", false, err
	}
	free, err := pathFree(target)
	if err != nil {
		return "", false, err
	}
	if free {
		return target, false, nil
	}
	if skipConflicts {
		return "", true, nil
	}

	dir := filepath.Dir(target)
	base := filepath.Base(target)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for n := 1; n <= 10000; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
		free, err := pathFree(candidate)
		if err != nil {
			return "", false, err
		}
		if free {
			return candidate, false, nil
		}
	}
	return "", false, fmt.Errorf("no free name for %s after 10000 attempts", target)
}

// parentCreatable checks that the target's parent directory either exists as
// a directory or can be created, by walking up to the nearest existing
// ancestor. A regular file sitting anywhere on that path makes the
// destination unreachable, and a dry run reports it the same way a live run
// would.
func parentCreatable(target string) error {
	dir := filepath.Dir(target)
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("destination parent %s is not a directory", dir)
			}
			return nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return err
		}
		dir = parent
	}
}

func pathFree(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if os.IsNotExist(err) {
		return true, nil
	}
	return false, err
}
