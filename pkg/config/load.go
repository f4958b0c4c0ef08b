package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// LoadDeviceConfigs reads every *.yaml file from each of dirs (later
// directories override earlier ones by device Name) and returns them sorted
// by descending Priority, the order pkg/manager applies them in. Priority is
// derived from each file's name, not read from the document: a leading
// numeric prefix sorts lower-numbered files earlier.
func LoadDeviceConfigs(dirs []string) ([]DeviceConfig, error) {
	byName := orderedmap.New[string, DeviceConfig]()
	for _, dir := range dirs {
		files, err := yamlFilesIn(dir)
		if err != nil {
			continue // a missing layer is not an error; layers are optional
		}
		for _, path := range files {
			var dc DeviceConfig
			if err := readYAML(path, &dc); err != nil {
				return nil, fmt.Errorf("device config %s: %w", path, err)
			}
			if dc.Name == "" {
				return nil, fmt.Errorf("device config %s: missing name", path)
			}
			dc.Priority = priorityFromFilename(path)
			byName.Set(dc.Name, dc)
		}
	}
	out := make([]DeviceConfig, 0, byName.Len())
	for pair := byName.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

// priorityFromFilename reads the leading run of decimal digits in path's
// base name (e.g. "10-xbox.yaml" -> 10) and negates it, so that stable
// descending-Priority sort puts the lowest-numbered filename first, per the
// "lower prefix = earlier" convention these configs are authored under.
// Filenames without a numeric prefix sort after every prefixed one, keeping
// their mutual order as declared.
func priorityFromFilename(path string) int {
	base := filepath.Base(path)
	end := 0
	for end < len(base) && base[end] >= '0' && base[end] <= '9' {
		end++
	}
	if end == 0 {
		return -(1 << 30)
	}
	n := 0
	for i := 0; i < end; i++ {
		n = n*10 + int(base[i]-'0')
	}
	return -n
}

// LoadCapabilityMap reads and normalizes a single capability map file by
// name (without extension) from the last (highest-precedence) directory in
// dirs that has it.
func LoadCapabilityMap(dirs []string, name string) ([]MappingEntry, error) {
	for i := len(dirs) - 1; i >= 0; i-- {
		dir := dirs[i]
		path := filepath.Join(dir, name+".yaml")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		var f CapabilityMapFile
		if err := readYAML(path, &f); err != nil {
			return nil, fmt.Errorf("capability map %s: %w", path, err)
		}
		return f.Normalize()
	}
	return nil, fmt.Errorf("capability map %q not found in %v", name, dirs)
}

// LoadProfile reads a single profile document by name from the last
// (highest-precedence) directory in dirs that has it.
func LoadProfile(dirs []string, name string) (*ProfileFile, error) {
	for i := len(dirs) - 1; i >= 0; i-- {
		dir := dirs[i]
		path := filepath.Join(dir, name+".yaml")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		var p ProfileFile
		if err := readYAML(path, &p); err != nil {
			return nil, fmt.Errorf("profile %s: %w", path, err)
		}
		return &p, nil
	}
	return nil, fmt.Errorf("profile %q not found in %v", name, dirs)
}

func yamlFilesIn(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}
