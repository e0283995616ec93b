package sheet

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtensions are the spreadsheet types picked up from input directories
var DefaultExtensions = []string{".xlsx", ".xlsm", ".csv"}

// SplitDirs splits a semicolon-separated directory list, dropping blanks
func SplitDirs(s string) []string {
	var dirs []string
	for _, d := range strings.Split(s, ";") {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// Discover lists input files with a matching extension in each directory.
// Directories that don't exist are skipped, as are Office lock files (~$*).
// Results are sorted per directory so runs read sources in a stable order.
func Discover(dirs, extensions []string) []string {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	var files []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		var found []string
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), "~$") {
				continue
			}
			if hasExtension(e.Name(), extensions) {
				found = append(found, filepath.Join(dir, e.Name()))
			}
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files
}

func hasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// ReadAll reads every file, collecting unreadable files and sheets as warnings
func ReadAll(paths []string) ([]Sheet, []Warning) {
	var sheets []Sheet
	var warnings []Warning
	for _, p := range paths {
		s, w, err := ReadFile(p)
		if err != nil {
			warnings = append(warnings, Warning{Source: p, Err: err})
			continue
		}
		sheets = append(sheets, s...)
		warnings = append(warnings, w...)
	}
	return sheets, warnings
}
