// Package extract derives STF file metadata from the file itself: run
// number and STF sequence parsed from the name, md5 checksum, and the URL
// under which remote consumers can address the file.
package extract

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Run number patterns tried in order against the file name,
// e.g. "run_12345_stf_001.stf".
var runNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)run_(\d+)`),
	regexp.MustCompile(`(?i)run(\d+)`),
	regexp.MustCompile(`(?i)r(\d+)`),
}

var stfIdentifierPattern = regexp.MustCompile(`(?i)stf_?(\d+)`)

// RunNumber parses the run number from a file name, falling back to
// defaultRunNumber when no pattern matches.
func RunNumber(path string, defaultRunNumber int32) int32 {
	name := filepath.Base(path)
	for _, pattern := range runNumberPatterns {
		if match := pattern.FindStringSubmatch(name); match != nil {
			n, err := strconv.ParseInt(match[1], 10, 32)
			if err != nil {
				continue
			}
			return int32(n)
		}
	}
	return defaultRunNumber
}

// StfIdentifier parses the STF sequence number from a file name. Files
// without a sequence get 0.
func StfIdentifier(path string) int32 {
	name := filepath.Base(path)
	if match := stfIdentifierPattern.FindStringSubmatch(name); match != nil {
		n, err := strconv.ParseInt(match[1], 10, 32)
		if err == nil {
			return int32(n)
		}
	}
	return 0
}

// Checksum computes the md5 of the file contents.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "error calculating checksum for %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FileURL constructs the URL under which the file is addressed remotely.
// The URL doubles as the ledger's idempotency key, so it must be stable
// across rescans: the absolute path guarantees that.
func FileURL(baseURL string, path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	base := strings.TrimRight(baseURL, "/")
	// Trimming must not eat the scheme separator: a scheme-only base such
	// as file:// joins with the absolute path directly, file:///data/...
	if strings.HasSuffix(base, ":") {
		return base + "//" + absPath, nil
	}
	return base + "/" + strings.TrimLeft(absPath, "/"), nil
}
