package sandbox

import (
	"regexp"
	"sort"
)

var (
	importRe     = regexp.MustCompile(`^import\s+(\w+)`)
	fromImportRe = regexp.MustCompile(`^from\s+(\w+)\s+import`)
	lineSplitRe  = regexp.MustCompile(`\r?\n`)
	leadingWS    = regexp.MustCompile(`^\s+`)
)

// stdlibModules are interpreter-bundled modules that never need installing.
var stdlibModules = map[string]bool{
	"os": true, "sys": true, "pathlib": true, "shutil": true, "glob": true, "fnmatch": true,
	"datetime": true, "time": true, "json": true, "csv": true, "re": true, "string": true,
	"collections": true, "itertools": true, "functools": true, "operator": true,
	"math": true, "random": true, "statistics": true, "decimal": true, "fractions": true,
	"io": true, "tempfile": true, "subprocess": true, "threading": true, "multiprocessing": true,
	"argparse": true, "logging": true, "pickle": true, "sqlite3": true, "urllib": true,
	"http": true, "email": true, "html": true, "xml": true, "configparser": true, "platform": true,
	"textwrap": true, "typing": true,
}

// packageCorrections maps commonly misnamed imports to their real package
// names on the index.
var packageCorrections = map[string]string{
	"PIL":       "Pillow",
	"cv2":       "opencv-python",
	"sklearn":   "scikit-learn",
	"yaml":      "PyYAML",
	"Image":     "Pillow",
	"ImageDraw": "Pillow",
	"ImageFont": "Pillow",
}

// RequiredPackages scans a script's top-level import statements and returns
// the third-party packages to install, with common name mistakes corrected
// and duplicates removed. The result is sorted for deterministic installs.
func RequiredPackages(script string) []string {
	seen := map[string]bool{}
	for _, line := range lineSplitRe.Split(script, -1) {
		line = leadingWS.ReplaceAllString(line, "")
		var module string
		if m := importRe.FindStringSubmatch(line); m != nil {
			module = m[1]
		} else if m := fromImportRe.FindStringSubmatch(line); m != nil {
			module = m[1]
		}
		if module == "" || stdlibModules[module] {
			continue
		}
		if corrected, ok := packageCorrections[module]; ok {
			module = corrected
		}
		seen[module] = true
	}
	packages := make([]string, 0, len(seen))
	for pkg := range seen {
		packages = append(packages, pkg)
	}
	sort.Strings(packages)
	return packages
}
