// Package paths provides path resolution utilities.
package paths

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// RedirectFile, when present in a manifest directory, names the directory
// that actually holds the manifests. Relative targets resolve against the
// directory containing the file.
const RedirectFile = "redirect"

// ExpandHome replaces a leading ~ with the user's home directory.
// Paths without ~ and paths that cannot be expanded are returned unchanged.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// ResolveManifestDirs normalizes configured manifest directories.
//
// Each entry is home-expanded, cleaned and redirected (see RedirectFile).
// Existing directories are returned in input order without duplicates;
// everything else is returned in missing, as configured.
func ResolveManifestDirs(dirs []string) (found, missing []string) {
	for _, d := range dirs {
		dir := followRedirect(filepath.Clean(ExpandHome(d)))
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			missing = append(missing, d)
			continue
		}
		if !slices.Contains(found, dir) {
			found = append(found, dir)
		}
	}
	return found, missing
}

// followRedirect checks for a redirect file and follows it if present.
// Only one level is followed.
func followRedirect(dir string) string {
	content, err := os.ReadFile(filepath.Join(dir, RedirectFile)) //nolint:gosec // redirect path is within the manifest dir
	if err != nil {
		return dir
	}

	target := strings.TrimSpace(string(content))
	if target == "" {
		return dir
	}
	target = ExpandHome(target)
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Clean(filepath.Join(dir, target))
}
