// Package inventory loads the device fleet from a YAML file and consolidates
// superspine NCC0/NCC1 variants into single logical chassis entries.
package inventory

import (
	"context"
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dnaas-network/bridge/pkg/model"
)

// deviceFile is the on-disk YAML shape: a flat list of device records.
type deviceFile struct {
	Devices []deviceEntry `yaml:"devices"`
}

type deviceEntry struct {
	Name        string `yaml:"name"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port,omitempty"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password,omitempty"`
	PasswordEnv string `yaml:"password_env,omitempty"`
	Role        string `yaml:"role,omitempty"`
}

// Inventory is the read-only device fleet resolved at startup.
type Inventory struct {
	devices  map[string]model.DeviceInfo
	chassis  map[string]model.Chassis
	order    []string
}

// deviceNameRe matches the DNAAS-<ROLE>-<ROW><RACK>[-NCCx] naming grammar.
var deviceNameRe = regexp.MustCompile(`(?i)^DNAAS-([A-Za-z]+)-([A-Za-z]+)(\d+)(?:-(NCC\d))?$`)

// Load parses the YAML inventory file at path. Failure aborts startup per
// the fatal-load contract; returned errors are wrapped with context.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory file: %w", err)
	}

	var file deviceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing inventory YAML: %w", err)
	}

	inv := &Inventory{
		devices: make(map[string]model.DeviceInfo),
		chassis: make(map[string]model.Chassis),
	}

	for _, e := range file.Devices {
		if e.Name == "" || e.Host == "" {
			return nil, fmt.Errorf("inventory entry missing name or host: %+v", e)
		}
		port := e.Port
		if port == 0 {
			port = 22
		}
		password := e.Password
		if password == "" && e.PasswordEnv != "" {
			password = os.Getenv(e.PasswordEnv)
		}

		role, row, rack, ncc, _ := ParseDeviceName(e.Name)
		if e.Role != "" {
			role = model.DeviceRole(strings.ToLower(e.Role))
		}

		info := model.DeviceInfo{
			Name:     e.Name,
			Host:     e.Host,
			Port:     port,
			Username: e.Username,
			Password: password,
			Role:     role,
			Row:      row,
			Rack:     rack,
			NCC:      ncc,
		}
		inv.devices[e.Name] = info
		inv.order = append(inv.order, e.Name)
	}

	inv.consolidateChassis()
	return inv, nil
}

// ParseDeviceName splits a device name of the form
// DNAAS-<ROLE>-<ROW><RACK>[-NCCx] into its components. ok is false when the
// name does not match the grammar (the caller should then treat Role as
// model.RoleUnknown and leave Row/Rack/NCC empty).
func ParseDeviceName(name string) (role model.DeviceRole, row, rack, ncc string, ok bool) {
	m := deviceNameRe.FindStringSubmatch(name)
	if m == nil {
		return model.RoleUnknown, "", "", "", false
	}
	return model.DeviceRole(strings.ToLower(m[1])), m[2], m[3], m[4], true
}

// chassisName strips a trailing -NCCx suffix, returning the name unchanged
// and ok=false when there is no such suffix.
func chassisName(name string) (base string, ok bool) {
	idx := strings.LastIndex(strings.ToUpper(name), "-NCC")
	if idx < 0 {
		return name, false
	}
	return name[:idx], true
}

func (inv *Inventory) consolidateChassis() {
	for _, name := range inv.order {
		info := inv.devices[name]
		base, isVariant := chassisName(name)
		if !isVariant {
			continue
		}
		c := inv.chassis[base]
		c.Name = base
		c.Row = info.Row
		c.Rack = info.Rack
		c.Variants = append(c.Variants, info)
		inv.chassis[base] = c
	}
}

// Get returns the connection info for a single device by name.
func (inv *Inventory) Get(name string) (model.DeviceInfo, bool) {
	d, ok := inv.devices[name]
	return d, ok
}

// Chassis returns the consolidated superspine chassis entries. Callers
// presenting a device selector should offer these in place of the raw NCC0/
// NCC1 device names.
func (inv *Inventory) Chassis() []model.Chassis {
	out := make([]model.Chassis, 0, len(inv.chassis))
	for _, c := range inv.chassis {
		out = append(out, c)
	}
	return out
}

// Devices returns every loaded device, in inventory-file order.
func (inv *Inventory) Devices() []model.DeviceInfo {
	out := make([]model.DeviceInfo, 0, len(inv.order))
	for _, name := range inv.order {
		out = append(out, inv.devices[name])
	}
	return out
}

// Reachable probes whether a device's SSH port accepts TCP connections
// within timeout. Unreachability is never fatal — callers should log a
// warning and proceed.
func (inv *Inventory) Reachable(ctx context.Context, name string, timeout time.Duration) bool {
	info, ok := inv.devices[name]
	if !ok {
		return false
	}
	d := net.Dialer{Timeout: timeout}
	addr := fmt.Sprintf("%s:%d", info.Host, info.Port)
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
