package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/hcpdash/internal/table"
)

// Reader turns one uploaded file into one raw table per sheet.
type Reader interface {
	CanRead(filename string) bool
	Read(name string, content []byte) ([]table.Raw, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

// ErrUnsupportedFile is returned for extensions no reader accepts.
var ErrUnsupportedFile = errors.New("unsupported file type (use .xlsx, .xls or .csv)")

// File is an uploaded file held fully in memory.
type File struct {
	Name string
	Data []byte
}

// FileError is a per-file parse failure. It never aborts processing of other files.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("error reading file `%s`: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Supported reports whether some registered reader accepts the filename.
func Supported(filename string) bool {
	return readerFor(filename) != nil
}

func readerFor(filename string) Reader {
	for _, r := range registry {
		if r.CanRead(filename) {
			return r
		}
	}
	return nil
}

// Read parses a single file with the reader matching its extension.
func Read(f File) ([]table.Raw, error) {
	r := readerFor(f.Name)
	if r == nil {
		return nil, ErrUnsupportedFile
	}
	return r.Read(filepath.Base(f.Name), f.Data)
}

// ReadAll parses every file. Tables from readable files are returned in upload order;
// unreadable files are reported individually.
func ReadAll(files []File) ([]table.Raw, []*FileError) {
	var out []table.Raw
	var errs []*FileError
	for _, f := range files {
		raws, err := Read(f)
		if err != nil {
			errs = append(errs, &FileError{Name: filepath.Base(f.Name), Err: err})
			continue
		}
		out = append(out, raws...)
	}
	return out, errs
}

// ReadPaths loads files from disk and parses them like ReadAll.
func ReadPaths(paths []string) ([]table.Raw, []*FileError) {
	files := make([]File, 0, len(paths))
	var errs []*FileError
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			errs = append(errs, &FileError{Name: filepath.Base(p), Err: fmt.Errorf("read file: %w", err)})
			continue
		}
		files = append(files, File{Name: p, Data: b})
	}
	raws, perr := ReadAll(files)
	return raws, append(errs, perr...)
}

// headerRow cleans a header row: blank names become "Unnamed: N" and repeated names get
// ".1", ".2" suffixes so every column stays addressable. A generated name that is already
// taken is suffixed again, so "A, A, A.1" becomes "A, A.1, A.1.1".
func headerRow(cells []string) []string {
	out := make([]string, len(cells))
	counts := map[string]int{}
	for i, c := range cells {
		name := c
		if strings.TrimSpace(name) == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		for n := counts[name]; n > 0; n = counts[name] {
			counts[name] = n + 1
			name = name + "." + strconv.Itoa(n)
		}
		counts[name] = 1
		out[i] = name
	}
	return out
}

func hasExt(name string, exts ...string) bool {
	lower := strings.ToLower(name)
	for _, e := range exts {
		if strings.HasSuffix(lower, e) {
			return true
		}
	}
	return false
}

func init() {
	Register(csvReader{})
	Register(workbookReader{})
}
