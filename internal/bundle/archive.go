package bundle

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/pgzip"

	"freecrafter/internal/platform"
)

// ArchiveName is the distribution file name for p.
func ArchiveName(p platform.Platform) string {
	ext := ".tar.gz"
	if p.IsWindows() {
		ext = ".zip"
	}
	return fmt.Sprintf("%s-%s-%s%s", AppName, p.Host, p.Arch, ext)
}

// EntryFunc is told about each regular file after it is written.
type EntryFunc func(name string, size int64)

// Archive packs src into outDir/ArchiveName(p). Entry names start with the
// base name of src, so unpacking recreates that directory.
func Archive(p platform.Platform, src, outDir string) (string, error) {
	return ArchiveWithProgress(p, src, outDir, nil)
}

// ArchiveWithProgress is Archive reporting each file to onEntry when it is
// non-nil.
func ArchiveWithProgress(p platform.Platform, src, outDir string, onEntry EntryFunc) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", src, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", src)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	dest := filepath.Join(outDir, ArchiveName(p))
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}

	if p.IsWindows() {
		err = writeZip(out, src, onEntry)
	} else {
		err = writeTarGz(out, src, onEntry)
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dest)
		return "", err
	}
	return dest, nil
}

func entryName(base, path string) (string, error) {
	rel, err := filepath.Rel(filepath.Dir(base), path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func writeTarGz(w io.Writer, src string, onEntry EntryFunc) error {
	gz := pgzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		name, err := entryName(src, path)
		if err != nil {
			return err
		}

		var linkTarget string
		if info.Mode()&os.ModeSymlink != 0 {
			if linkTarget, err = os.Readlink(path); err != nil {
				return fmt.Errorf("readlink %s: %w", path, err)
			}
		}
		hdr, err := tar.FileInfoHeader(info, linkTarget)
		if err != nil {
			return err
		}
		hdr.Name = name
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return copyEntry(tw, path, name, info.Size(), onEntry)
	})
	if err != nil {
		return fmt.Errorf("write tarball: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}
	return nil
}

func writeZip(w io.Writer, src string, onEntry EntryFunc) error {
	zw := zip.NewWriter(w)

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		name, err := entryName(src, path)
		if err != nil {
			return err
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = name
		if info.IsDir() {
			hdr.Name += "/"
		} else {
			hdr.Method = zip.Deflate
		}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return copyEntry(fw, path, name, info.Size(), onEntry)
	})
	if err != nil {
		return fmt.Errorf("write zip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}

func copyEntry(w io.Writer, path, name string, size int64, onEntry EntryFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return err
	}
	if onEntry != nil {
		onEntry(name, size)
	}
	return nil
}
