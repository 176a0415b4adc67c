// Package securefile provides atomic JSON file read/write and the
// per-user config path layout shared by every persisted store.
package securefile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// EnvVar selects an environment subfolder for the config layout.
const EnvVar = "WALLET_DASHBOARD_ENV"

const (
	defaultFilePerm      os.FileMode = 0o600
	defaultDirectoryPerm os.FileMode = 0o700
)

// WriteJSON marshals v as pretty JSON and writes it atomically to path,
// creating the parent directory when needed.
func WriteJSON[T any](path string, v T, filePerm, dirPerm os.FileMode) error {
	if filePerm == 0 {
		filePerm = defaultFilePerm
	}
	if dirPerm == 0 {
		dirPerm = defaultDirectoryPerm
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return errors.Wrapf(err, "mkdir %s", filepath.Dir(path))
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal json")
	}
	return AtomicWriteFile(path, b, filePerm)
}

// ReadJSON reads path and unmarshals it into T.
func ReadJSON[T any](path string) (T, error) {
	var out T
	b, err := os.ReadFile(path)
	if err != nil {
		return out, errors.Wrap(err, "read file")
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, errors.Wrapf(err, "unmarshal %s", filepath.Base(path))
	}
	return out, nil
}

// AtomicWriteFile writes data to a temp file next to path and renames it
// into place, so readers never observe a partial file.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"

	// leftover from an interrupted write
	_ = os.Remove(tmp)

	if err := os.WriteFile(tmp, data, perm); err != nil {
		return errors.Wrap(err, "write tmp")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "rename")
	}
	return nil
}

// Exists reports whether path can be stat'ed.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ConfigPathCandidates returns config paths to try, in priority order.
// WALLET_DASHBOARD_ENV optionally adds a subfolder: local/ or develop/.
func ConfigPathCandidates(app, filename string) ([]string, error) {
	envFolder, err := EnvFolder()
	if err != nil {
		return nil, err
	}
	if app == "" {
		return nil, errors.New("app must not be empty")
	}
	if filename == "" {
		return nil, errors.New("filename must not be empty")
	}

	var paths []string
	seen := map[string]bool{}
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		paths = append(paths, p)
	}

	homeStyle := func(home string) string {
		// <home>/.config/<app>/<env?>/<filename>
		dir := filepath.Join(home, ".config", app)
		if envFolder != "" {
			dir = filepath.Join(dir, envFolder)
		}
		return filepath.Join(dir, filename)
	}

	if realHome := os.Getenv("SNAP_REAL_HOME"); realHome != "" {
		add(homeStyle(realHome))
	}
	if home := os.Getenv("HOME"); home != "" {
		add(homeStyle(home))
	}

	if dir, err := os.UserConfigDir(); err == nil {
		base := filepath.Join(dir, app)
		if envFolder != "" {
			base = filepath.Join(base, envFolder)
		}
		add(filepath.Join(base, filename))
	} else if len(paths) == 0 {
		return nil, errors.Wrap(err, "UserConfigDir")
	}

	return paths, nil
}

// ResolvePath picks the first existing candidate, else the first candidate
// as the target path for a new file.
func ResolvePath(app, filename string) (string, error) {
	cands, err := ConfigPathCandidates(app, filename)
	if err != nil {
		return "", err
	}
	if len(cands) == 0 {
		return "", errors.New("no config path candidates returned")
	}
	for _, p := range cands {
		if Exists(p) {
			return p, nil
		}
	}
	return cands[0], nil
}

// EnvFolder maps WALLET_DASHBOARD_ENV to its subfolder. Empty means prod.
func EnvFolder() (string, error) {
	raw := strings.TrimSpace(os.Getenv(EnvVar))
	switch strings.ToLower(raw) {
	case "", "prod", "production":
		return "", nil
	case "local":
		return "local", nil
	case "dev", "develop", "development":
		return "develop", nil
	default:
		return "", errors.Newf("invalid %s %q (allowed: local, develop, empty)", EnvVar, raw)
	}
}
