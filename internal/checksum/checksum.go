package checksum

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"lukechampine.com/blake3"
)

// ListingName is the sidecar digest listing expected inside a wheel cache.
const ListingName = "checksums.txt"

const chunkSize = 64 << 10

type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

// Entry is one "<digest> <filename>" line of a listing. The digest may carry
// an "sha256:" or "blake3:" prefix; bare digests are SHA-256.
type Entry struct {
	Algorithm Algorithm
	Digest    string
	File      string
	Line      int
}

// FormatError reports a listing line that is not exactly two tokens.
type FormatError struct {
	Line int
	Text string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed checksum line %d: %q", e.Line, e.Text)
}

// MismatchError reports a cache file that is missing or whose content does
// not match its recorded digest.
type MismatchError struct {
	File   string
	Reason string
}

func (e *MismatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("checksum mismatch for %s (%s)", e.File, e.Reason)
	}
	return fmt.Sprintf("checksum mismatch for %s", e.File)
}

// ParseListing reads listing entries, skipping blank lines and # comments.
func ParseListing(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, &FormatError{Line: lineNo, Text: line}
		}
		algo, digest, ok := parseDigest(parts[0])
		if !ok {
			return nil, &FormatError{Line: lineNo, Text: line}
		}
		entries = append(entries, Entry{Algorithm: algo, Digest: digest, File: parts[1], Line: lineNo})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read checksum listing: %w", err)
	}
	return entries, nil
}

func parseDigest(token string) (Algorithm, string, bool) {
	prefix, digest, found := strings.Cut(token, ":")
	if !found {
		return SHA256, token, true
	}
	switch Algorithm(strings.ToLower(prefix)) {
	case SHA256:
		return SHA256, digest, digest != ""
	case BLAKE3:
		return BLAKE3, digest, digest != ""
	}
	return "", "", false
}

func newHash(algo Algorithm) (hash.Hash, error) {
	switch algo {
	case SHA256, "":
		return sha256.New(), nil
	case BLAKE3:
		return blake3.New(32, nil), nil
	}
	return nil, fmt.Errorf("unsupported checksum algorithm %q", algo)
}

// HashFile digests path in fixed-size chunks and returns lowercase hex. When
// progress is non-nil a byte progress bar is drawn on it.
func HashFile(path string, algo Algorithm, progress io.Writer) (string, error) {
	h, err := newHash(algo)
	if err != nil {
		return "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for checksum: %w", err)
	}
	defer file.Close()

	var dst io.Writer = h
	if progress != nil {
		if info, statErr := file.Stat(); statErr == nil {
			bar := progressbar.NewOptions64(info.Size(),
				progressbar.OptionSetWriter(progress),
				progressbar.OptionSetDescription("verify "+info.Name()),
				progressbar.OptionShowBytes(true),
				progressbar.OptionClearOnFinish(),
			)
			defer bar.Close()
			dst = io.MultiWriter(h, bar)
		}
	}

	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(dst, file, buf); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
