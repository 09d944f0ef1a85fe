package util

import (
	"fmt"
	"regexp"
)

// ifNameRe splits an interface name into its alphabetic base (e.g. "TenGigE",
// "Bundle-Ether") and its trailing numeric/slot identifier (e.g. "0/0/0/1", "100").
var ifNameRe = regexp.MustCompile(`^([A-Za-z\-]+)([0-9/.:]*)$`)

// subIfRe matches a sub-interface suffix: a literal dot followed by digits.
var subIfRe = regexp.MustCompile(`\.[0-9]+$`)

// ParseInterfaceName splits an interface name into its base name and its
// numeric/slot suffix, e.g. "TenGigE0/0/0/1" -> ("TenGigE", "0/0/0/1").
func ParseInterfaceName(name string) (base, suffix string, err error) {
	m := ifNameRe.FindStringSubmatch(name)
	if m == nil {
		return "", "", fmt.Errorf("unrecognized interface name: %s", name)
	}
	return m[1], m[2], nil
}

// SubInterfaceID returns the sub-interface VLAN/unit ID encoded after the
// trailing dot of an interface name, e.g. "TenGigE0/0/0/1.100" -> 100, true.
// Returns ok=false when name has no sub-interface suffix.
func SubInterfaceID(name string) (id int, ok bool) {
	loc := subIfRe.FindStringIndex(name)
	if loc == nil {
		return 0, false
	}
	suffix := name[loc[0]+1 : loc[1]]
	var n int
	if _, err := fmt.Sscanf(suffix, "%d", &n); err != nil {
		return 0, false
	}
	return n, true
}

// HasDoubleVLANSuffix reports whether name encodes two distinct sub-interface
// (dot) suffixes, e.g. "TenGigE0/0/0/1.100.200" — a malformed encoding that
// deployment planning must reject rather than silently truncate.
func HasDoubleVLANSuffix(name string) bool {
	count := 0
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			count++
		}
	}
	return count > 1
}
