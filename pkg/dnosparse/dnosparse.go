// Package dnosparse parses DNOS CLI output (tabular `show interfaces`,
// `show network-services bridge-domain`, and raw `show config | fl`) into
// structured records. Every parser is tolerant of blank lines, banners, and
// pagination artifacts, but strict about the small grammar it targets:
// unknown leading keywords on lines that otherwise match a target prefix
// produce a structured ParseWarning rather than being silently dropped.
package dnosparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dnaas-network/bridge/pkg/model"
)

// ParseWarning is a structured, non-fatal parse anomaly.
type ParseWarning struct {
	Line   string
	Reason string
}

// BDFragment is one device-local bridge-domain fragment as reported by
// `show network-services bridge-domain`.
type BDFragment struct {
	Name       string
	AdminState model.AdminState
	Interfaces []string
}

// InterfaceRecord is one row of `show interfaces` output.
type InterfaceRecord struct {
	Name        string
	Kind        model.InterfaceKind
	AdminStatus model.AdminOperStatus
	OperStatus  model.AdminOperStatus
	VLANID      *int
	L2Service   bool
}

// ConfigStatementKind is the closed set of grammar productions
// ParseConfigLines recognizes.
type ConfigStatementKind string

const (
	StmtBDInstance ConfigStatementKind = "bd_instance"
	StmtVLANID     ConfigStatementKind = "vlan_id"
	StmtL2Service  ConfigStatementKind = "l2_service"
	StmtQinQTags   ConfigStatementKind = "qinq_tags"
)

// ConfigStatement is one recognized line from `show running-config` /
// `show config | fl`.
type ConfigStatement struct {
	Kind       ConfigStatementKind
	BDName     string
	AdminState string
	Interface  string
	VLANID     *int
	OuterTag   *int
	InnerTag   *int
	Enabled    bool
}

var (
	moreRe         = regexp.MustCompile(`(?i)--more--`)
	bdBlockRe      = regexp.MustCompile(`(?i)^Bridge-domain:\s*(\S+)`)
	bdAdminRe      = regexp.MustCompile(`(?i)^Admin-State:\s*(\S+)`)
	bdInterfacesRe = regexp.MustCompile(`(?i)^Interfaces:\s*$`)

	l2SuffixRe  = regexp.MustCompile(`\(L2\)$`)
	subIfVLANRe = regexp.MustCompile(`\.([0-9]+)$`)

	bdInstanceRe = regexp.MustCompile(`^network-services bridge-domain instance (\S+)(?:\s+admin-state\s+(\S+))?(?:\s+interface\s+(\S+))?\s*$`)
	vlanIDRe     = regexp.MustCompile(`^interfaces (\S+) vlan-id (\d+)\s*$`)
	l2ServiceRe  = regexp.MustCompile(`^interfaces (\S+) l2-service (enabled|disabled)\s*$`)
	qinqTagsRe   = regexp.MustCompile(`^interfaces (\S+) vlan-tags outer-tag (\d+) inner-tag (\d+)\s*$`)
)

// StripPagination removes `--More--` pager artifacts so that downstream
// parsers see identical input whether or not the capture was paginated.
func StripPagination(raw string) string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if moreRe.MatchString(l) {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

// ParseBridgeDomainShow parses `show network-services bridge-domain
// [<name>]` output into one fragment per "Bridge-domain:" block.
func ParseBridgeDomainShow(output string) ([]BDFragment, []ParseWarning) {
	output = StripPagination(output)
	var fragments []BDFragment
	var warnings []ParseWarning

	var cur *BDFragment
	inInterfaceList := false

	flush := func() {
		if cur != nil {
			fragments = append(fragments, *cur)
			cur = nil
		}
	}

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if m := bdBlockRe.FindStringSubmatch(line); m != nil {
			flush()
			cur = &BDFragment{Name: m[1]}
			inInterfaceList = false
			continue
		}
		if cur == nil {
			// Banner/header noise before the first block.
			continue
		}
		if m := bdAdminRe.FindStringSubmatch(line); m != nil {
			cur.AdminState = model.AdminState(strings.ToLower(m[1]))
			inInterfaceList = false
			continue
		}
		if bdInterfacesRe.MatchString(line) {
			inInterfaceList = true
			continue
		}
		if inInterfaceList {
			cur.Interfaces = append(cur.Interfaces, line)
			continue
		}
		warnings = append(warnings, ParseWarning{Line: line, Reason: "unrecognized bridge-domain show line"})
	}
	flush()

	return fragments, warnings
}

// ParseInterfacesShow parses `show interfaces | no-more [| i <pattern>]`
// tabular output.
func ParseInterfacesShow(output string) ([]InterfaceRecord, []ParseWarning) {
	output = StripPagination(output)
	var records []InterfaceRecord
	var warnings []ParseWarning

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(line), "interface") && strings.Contains(strings.ToLower(line), "admin") {
			continue // header row
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			warnings = append(warnings, ParseWarning{Line: line, Reason: "too few columns for an interface row"})
			continue
		}

		name := fields[0]
		isL2 := l2SuffixRe.MatchString(name)
		name = l2SuffixRe.ReplaceAllString(name, "")

		rec := InterfaceRecord{
			Name:        name,
			AdminStatus: parseStatus(fields[1]),
			OperStatus:  parseStatus(fields[2]),
			L2Service:   isL2,
		}

		switch {
		case strings.Contains(name, "."):
			rec.Kind = model.KindSubinterface
		case strings.HasPrefix(strings.ToLower(name), "bundle"):
			rec.Kind = model.KindBundle
		default:
			rec.Kind = model.KindPhysical
		}

		// A dedicated VLAN column, when present, is field index 3 and wins
		// over the name-derived suffix; "-" means absent.
		if len(fields) >= 4 && fields[3] != "-" {
			if v, err := strconv.Atoi(fields[3]); err == nil {
				rec.VLANID = &v
			}
		}
		if rec.VLANID == nil {
			if m := subIfVLANRe.FindStringSubmatch(name); m != nil {
				if v, err := strconv.Atoi(m[1]); err == nil {
					rec.VLANID = &v
				}
			}
		}

		records = append(records, rec)
	}

	return records, warnings
}

func parseStatus(s string) model.AdminOperStatus {
	switch strings.ToLower(s) {
	case "up":
		return model.StatusUp
	case "down":
		return model.StatusDown
	default:
		return model.StatusUnknown
	}
}

// ParseConfigLines parses `show running-config` / `show config | fl` lines
// against the small grammar in the external interface contract. Lines
// matching a target prefix (network-services, interfaces) but not the full
// grammar produce a ParseWarning instead of being silently dropped.
func ParseConfigLines(output string) ([]ConfigStatement, []ParseWarning) {
	output = StripPagination(output)
	var stmts []ConfigStatement
	var warnings []ParseWarning

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		switch {
		case qinqTagsRe.MatchString(line):
			m := qinqTagsRe.FindStringSubmatch(line)
			outer, _ := strconv.Atoi(m[2])
			inner, _ := strconv.Atoi(m[3])
			stmts = append(stmts, ConfigStatement{Kind: StmtQinQTags, Interface: m[1], OuterTag: &outer, InnerTag: &inner})

		case l2ServiceRe.MatchString(line):
			m := l2ServiceRe.FindStringSubmatch(line)
			stmts = append(stmts, ConfigStatement{Kind: StmtL2Service, Interface: m[1], Enabled: m[2] == "enabled"})

		case vlanIDRe.MatchString(line):
			m := vlanIDRe.FindStringSubmatch(line)
			v, _ := strconv.Atoi(m[2])
			stmts = append(stmts, ConfigStatement{Kind: StmtVLANID, Interface: m[1], VLANID: &v})

		case bdInstanceRe.MatchString(line):
			m := bdInstanceRe.FindStringSubmatch(line)
			stmts = append(stmts, ConfigStatement{Kind: StmtBDInstance, BDName: m[1], AdminState: m[2], Interface: m[3]})

		case strings.HasPrefix(line, "network-services") || strings.HasPrefix(line, "interfaces"):
			warnings = append(warnings, ParseWarning{Line: line, Reason: "matches a target prefix but not the expected grammar"})

		default:
			// Lines outside the target prefixes are simply out of scope.
		}
	}

	return stmts, warnings
}
