package entropack

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// maxNameAttempts bounds the search for a free output name.
const maxNameAttempts = 1 << 16

// NextName returns the name following path in the disambiguation
// sequence: "dir/name.txt" becomes "dir/name_1.txt", and a stem already
// ending in "_N" has N incremented. Only the final path element is
// inspected.
func NextName(path string) string {
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		// dot files such as ".profile" have no extension
		stem, ext = base, ""
	}
	n := 1
	if i := strings.LastIndexByte(stem, '_'); i >= 0 {
		if v, err := strconv.Atoi(stem[i+1:]); err == nil && v >= 0 && stem[i+1] != '+' && stem[i+1] != '-' {
			stem, n = stem[:i], v+1
		}
	}
	return dir + stem + "_" + strconv.Itoa(n) + ext
}

// OutputPath returns the first candidate for decoding archivePath:
// the suffix is stripped and NextName applied.
func OutputPath(archivePath string) (string, error) {
	if !strings.HasSuffix(archivePath, Suffix) || len(archivePath) == len(Suffix) {
		return "", fmt.Errorf("%w: %q", ErrArchiveSuffix, archivePath)
	}
	return NextName(strings.TrimSuffix(archivePath, Suffix)), nil
}

// createOutput exclusively creates the first free name starting at
// candidate. Existing files are never opened for writing.
func createOutput(candidate string) (*os.File, string, error) {
	for i := 0; i < maxNameAttempts; i++ {
		f, err := os.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("create output %q: %w", candidate, err)
		}
		candidate = NextName(candidate)
	}
	return nil, "", fmt.Errorf("create output %q: %w", candidate, fs.ErrExist)
}
