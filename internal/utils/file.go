package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// GetFileExtension returns the file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// HasExtension reports whether filename ends in one of exts (without dots,
// any case).
func HasExtension(filename string, exts []string) bool {
	ext := GetFileExtension(filename)
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.EqualFold(ext, strings.TrimPrefix(e, ".")) {
			return true
		}
	}
	return false
}

// GenerateOutputFilename generates an output filename based on input and parameters
func GenerateOutputFilename(inputFile, outputDir, prefix, suffix, format string) string {
	baseName := filepath.Base(inputFile)
	nameWithoutExt := strings.TrimSuffix(baseName, filepath.Ext(baseName))

	if format == "" {
		format = GetFileExtension(inputFile)
		if format == "" {
			format = "jpg"
		}
	}

	outputName := fmt.Sprintf("%s%s%s.%s", prefix, nameWithoutExt, suffix, strings.TrimPrefix(format, "."))
	return filepath.Join(outputDir, outputName)
}

// BatchOutputFilenames names the outputs for files found under inputDir.
// Each output keeps its input's subdirectory below outputDir. Inputs that
// would still share a name (me.jpg and me.png) keep their source extension
// in the name, and any remaining clash gets a counter.
func BatchOutputFilenames(inputDir string, files []string, outputDir, prefix, suffix, format string) []string {
	dirs := make([]string, len(files))
	outs := make([]string, len(files))
	count := make(map[string]int, len(files))
	for i, f := range files {
		dirs[i] = outputDir
		if rel, err := filepath.Rel(inputDir, filepath.Dir(f)); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			dirs[i] = filepath.Join(outputDir, rel)
		}
		outs[i] = GenerateOutputFilename(f, dirs[i], prefix, suffix, format)
		count[strings.ToLower(outs[i])]++
	}

	taken := make(map[string]bool, len(files))
	for i, f := range files {
		if count[strings.ToLower(outs[i])] > 1 {
			ext := strings.TrimPrefix(filepath.Ext(f), ".")
			outs[i] = GenerateOutputFilename(f, dirs[i], prefix, "_"+ext+suffix, format)
		}
		for n := 2; taken[strings.ToLower(outs[i])]; n++ {
			outs[i] = GenerateOutputFilename(f, dirs[i], prefix, fmt.Sprintf("%s_%d", suffix, n), format)
		}
		taken[strings.ToLower(outs[i])] = true
	}
	return outs
}

// ListImageFiles recursively lists files under dir with one of exts, sorted.
func ListImageFiles(dir string, exts []string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && HasExtension(path, exts) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists checks if a directory exists
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// WriteFileAtomic writes through a temp file in the target directory and
// renames it over path. On any error the temp file is removed and path is
// left untouched.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// FormatFileSize formats file size in human-readable format
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
