// Package configpaths resolves the layered configuration directories
// inputmuxd reads from, following the same XDG/etc precedence the rest of
// the Linux input stack uses: packaged defaults under /usr/share are
// overridden by distro/admin drop-ins under /etc, which are in turn
// overridden by the user's own XDG config home.
package configpaths

import (
	"errors"
	"os"
	"path/filepath"
)

// Kind names one of the five configuration content kinds inputmuxd loads.
type Kind string

const (
	KindDevices        Kind = "devices"
	KindCapabilityMaps Kind = "capability_maps"
	KindProfiles       Kind = "profiles"
	KindScripts        Kind = "scripts"
	KindSchemas        Kind = "schemas"
)

// UserConfigDir returns the user-writable configuration directory, the
// highest-priority layer.
func UserConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "inputmuxd"), nil
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", "inputmuxd"), nil
	}
	return "", errors.New("HOME not set")
}

// Layers returns the directories to search for Kind k, ordered from
// lowest to highest precedence: packaged defaults, then /etc drop-ins, then
// the user's own directory. pkg/config.LoadDeviceConfigs and friends apply
// later (higher precedence) entries on top of earlier ones.
func Layers(k Kind) []string {
	dirs := []string{
		filepath.Join("/usr/share/inputmuxd", string(k)),
		filepath.Join("/etc/inputmuxd", string(k)+".d"),
	}
	if user, err := UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(user, string(k)))
	}
	return dirs
}

// EnsureDir ensures the directory containing filePath exists.
func EnsureDir(filePath string) error {
	return os.MkdirAll(filepath.Dir(filePath), 0o755)
}

// DefaultConfigDir returns the directory cmd/inputmuxd's own CLI
// configuration file (as opposed to the layered devices/capability_maps/
// profiles/scripts/schemas directories above) lives in, and where the
// control bus's generated auth key file is written.
func DefaultConfigDir() (string, error) {
	return UserConfigDir()
}

// ConfigCandidatePaths builds candidate CLI configuration file paths per
// format, in the priority order kong.Configuration applies them: an
// explicit --config/INPUTMUXD_CONFIG path first, then the working
// directory, then the user config directory, then /etc.
func ConfigCandidatePaths(userPath string) (jsonPaths, yamlPaths, tomlPaths []string) {
	add := func(slice *[]string, p string) { *slice = append(*slice, p) }

	if userPath != "" {
		switch filepath.Ext(userPath) {
		case ".json":
			add(&jsonPaths, userPath)
		case ".yaml", ".yml":
			add(&yamlPaths, userPath)
		case ".toml":
			add(&tomlPaths, userPath)
		default:
			add(&jsonPaths, userPath)
		}
	}

	wd, _ := os.Getwd()
	for _, base := range []string{"inputmuxd", "config"} {
		add(&jsonPaths, filepath.Join(wd, base+".json"))
		add(&yamlPaths, filepath.Join(wd, base+".yaml"))
		add(&yamlPaths, filepath.Join(wd, base+".yml"))
		add(&tomlPaths, filepath.Join(wd, base+".toml"))
	}

	if dir, err := DefaultConfigDir(); err == nil {
		for _, base := range []string{"config"} {
			add(&jsonPaths, filepath.Join(dir, base+".json"))
			add(&yamlPaths, filepath.Join(dir, base+".yaml"))
			add(&yamlPaths, filepath.Join(dir, base+".yml"))
			add(&tomlPaths, filepath.Join(dir, base+".toml"))
		}
	}

	for _, base := range []string{"config"} {
		add(&jsonPaths, filepath.Join("/etc/inputmuxd", base+".json"))
		add(&yamlPaths, filepath.Join("/etc/inputmuxd", base+".yaml"))
		add(&yamlPaths, filepath.Join("/etc/inputmuxd", base+".yml"))
		add(&tomlPaths, filepath.Join("/etc/inputmuxd", base+".toml"))
	}

	return
}
