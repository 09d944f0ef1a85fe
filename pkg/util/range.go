package util

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ExpandRange expands a range specification into individual values
// Supports formats like:
//   - "1-5" -> [1, 2, 3, 4, 5]
//   - "1,3,5" -> [1, 3, 5]
//   - "1-3,5,7-9" -> [1, 2, 3, 5, 7, 8, 9]
func ExpandRange(spec string) ([]int, error) {
	if spec == "" {
		return nil, nil
	}

	var result []int
	parts := strings.Split(spec, ",")

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if strings.Contains(part, "-") {
			// Range: "1-5"
			rangeParts := strings.SplitN(part, "-", 2)
			if len(rangeParts) != 2 {
				return nil, fmt.Errorf("invalid range format: %s", part)
			}

			start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
			if err != nil {
				return nil, fmt.Errorf("invalid start value in range %s: %v", part, err)
			}

			end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
			if err != nil {
				return nil, fmt.Errorf("invalid end value in range %s: %v", part, err)
			}

			if start > end {
				return nil, fmt.Errorf("start value %d greater than end value %d in range %s", start, end, part)
			}

			for i := start; i <= end; i++ {
				result = append(result, i)
			}
		} else {
			// Single value
			val, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid value: %s", part)
			}
			result = append(result, val)
		}
	}

	// Sort and deduplicate
	sort.Ints(result)
	return dedupInts(result), nil
}

func dedupInts(sorted []int) []int {
	if len(sorted) == 0 {
		return sorted
	}
	result := []int{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			result = append(result, sorted[i])
		}
	}
	return result
}

// ValidateVLANID checks that a VLAN ID falls within the IEEE 802.1Q range.
func ValidateVLANID(vlan int) error {
	if vlan < 1 || vlan > 4094 {
		return fmt.Errorf("vlan id %d out of range (must be 1-4094)", vlan)
	}
	return nil
}

// ExpandVLANRange expands VLAN range notation
// "100-105,200" -> [100, 101, 102, 103, 104, 105, 200]
func ExpandVLANRange(spec string) ([]int, error) {
	vlans, err := ExpandRange(spec)
	if err != nil {
		return nil, err
	}

	// Validate VLAN IDs
	for _, vlan := range vlans {
		if err := ValidateVLANID(vlan); err != nil {
			return nil, err
		}
	}

	return vlans, nil
}
