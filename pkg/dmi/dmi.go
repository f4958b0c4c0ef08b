// Package dmi reads hardware identification facts from
// /sys/class/dmi/id, used by pkg/manager to gate device configurations to
// specific hardware (e.g. a handheld's built-in gamepad controls).
package dmi

import (
	"os"
	"path/filepath"
	"strings"
)

const dmiRoot = "/sys/class/dmi/id"

// Facts holds the subset of DMI fields device configuration matching cares
// about.
type Facts struct {
	SysVendor   string
	ProductName string
}

// Read loads DMI facts from the kernel's sysfs DMI tree. Missing files read
// as empty strings rather than an error, since not every field is populated
// on every board.
func Read() (Facts, error) {
	return ReadFrom(dmiRoot)
}

// ReadFrom reads DMI facts from an arbitrary root, exposed so tests can
// point it at a fixture directory instead of the real sysfs tree.
func ReadFrom(root string) (Facts, error) {
	return Facts{
		SysVendor:   readTrimmed(filepath.Join(root, "sys_vendor")),
		ProductName: readTrimmed(filepath.Join(root, "product_name")),
	}, nil
}

func readTrimmed(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Matches reports whether facts satisfies the given non-empty field
// constraints (empty constraint fields are ignored).
func (f Facts) Matches(sysVendor, productName string) bool {
	if sysVendor != "" && f.SysVendor != sysVendor {
		return false
	}
	if productName != "" && f.ProductName != productName {
		return false
	}
	return true
}
