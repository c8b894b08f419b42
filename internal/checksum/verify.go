package checksum

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Verifier checks a wheel cache against its digest listing before the cache
// is used for an offline install.
type Verifier struct {
	Log logrus.FieldLogger
	// Progress receives per-file progress bars when set.
	Progress io.Writer
}

// VerifyCache succeeds when dir does not exist or holds no listing. Otherwise
// every listed file must be present and match its digest. Malformed lines
// yield *FormatError and bad files *MismatchError.
func (v Verifier) VerifyCache(dir string) error {
	log := v.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Infof("Wheel cache directory %s does not exist; skipping validation", dir)
			return nil
		}
		return fmt.Errorf("stat wheel cache: %w", err)
	}

	listingPath := filepath.Join(dir, ListingName)
	listing, err := os.Open(listingPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Infof("No checksum file at %s; skipping validation", listingPath)
			return nil
		}
		return fmt.Errorf("open checksum listing: %w", err)
	}
	entries, err := ParseListing(listing)
	listing.Close()
	if err != nil {
		return err
	}

	for _, entry := range entries {
		path := filepath.Join(dir, filepath.FromSlash(entry.File))
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return &MismatchError{File: path, Reason: "file missing"}
		}
		sum, err := HashFile(path, entry.Algorithm, v.Progress)
		if err != nil {
			return fmt.Errorf("verify %s: %w", path, err)
		}
		if !strings.EqualFold(sum, entry.Digest) {
			return &MismatchError{File: path}
		}
		log.Debugf("Verified %s (%s)", entry.File, entry.Algorithm)
	}
	log.Infof("Verified %d wheel cache entries in %s", len(entries), dir)
	return nil
}
