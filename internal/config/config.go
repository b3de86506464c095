// Package config loads the YAML document describing a controller's
// switch fleet: target, credentials, device id, role, initial election
// id, pipeline, and reconnect policy overrides (spec §6,
// "Configuration"). It also watches the config/pipeline directory with
// fsnotify and republishes a fresh *Config on change, so a long-running
// controller process can pick up a rotated pipeline binary or TLS cert
// without restarting.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/finsy-project/finsy-go/internal/backoff"
	"github.com/finsy-project/finsy-go/internal/election"
	"github.com/finsy-project/finsy-go/internal/fswitch"
	"github.com/finsy-project/finsy-go/internal/gnmi"
	"github.com/finsy-project/finsy-go/internal/p4rt"
)

// TLSConfig describes one switch's TLS material, or plaintext when
// Insecure is set (lab/development use only).
type TLSConfig struct {
	CAFile             string `yaml:"ca_file,omitempty"`
	CertFile           string `yaml:"cert_file,omitempty"`
	KeyFile            string `yaml:"key_file,omitempty"`
	ServerNameOverride string `yaml:"server_name_override,omitempty"`
	Insecure           bool   `yaml:"insecure,omitempty"`
}

// ToP4RT converts the YAML TLS block into p4rt.Credentials.
func (t TLSConfig) ToP4RT() p4rt.Credentials {
	return p4rt.Credentials{
		CAFile:             t.CAFile,
		CertFile:           t.CertFile,
		KeyFile:            t.KeyFile,
		ServerNameOverride: t.ServerNameOverride,
		Insecure:           t.Insecure,
	}
}

// ToGNMI converts the YAML TLS block into gnmi.Credentials. Finsy
// switches commonly serve P4Runtime and gNMI on the same TLS identity.
func (t TLSConfig) ToGNMI() gnmi.Credentials {
	return gnmi.Credentials{
		CAFile:             t.CAFile,
		CertFile:           t.CertFile,
		KeyFile:            t.KeyFile,
		ServerNameOverride: t.ServerNameOverride,
		Insecure:           t.Insecure,
	}
}

// ReconnectConfig overrides the default backoff.Policy for one switch.
type ReconnectConfig struct {
	Base   time.Duration `yaml:"base,omitempty"`
	Factor float64       `yaml:"factor,omitempty"`
	Cap    time.Duration `yaml:"cap,omitempty"`
}

// Policy converts the YAML overrides into a backoff.Policy, falling
// back to backoff.Default() for any zero field.
func (r ReconnectConfig) Policy() backoff.Policy {
	p := backoff.Default()
	if r.Base > 0 {
		p.Base = r.Base
	}
	if r.Factor > 0 {
		p.Factor = r.Factor
	}
	if r.Cap > 0 {
		p.Cap = r.Cap
	}
	return p
}

// DigestAckConfig selects a switch's digest-list acknowledgement
// cadence (spec §9, Open Question iii): "per_list" (default) acks every
// list as soon as it is consumed; "batched" coalesces acks accumulated
// within Window into periodic flushes.
type DigestAckConfig struct {
	Mode   string        `yaml:"mode,omitempty"` // "per_list" (default) or "batched"
	Window time.Duration `yaml:"window,omitempty"`
}

// ToFswitch converts the YAML digest-ack block into an
// fswitch.DigestAckMode.
func (d *DigestAckConfig) ToFswitch() fswitch.DigestAckMode {
	if d == nil || d.Mode != "batched" {
		return fswitch.DigestAckPerList()
	}
	return fswitch.DigestAckBatched(d.Window)
}

// PipelineConfig names the files making up one switch's forwarding
// pipeline config (spec §3, "Pipeline").
type PipelineConfig struct {
	P4InfoFile     string `yaml:"p4info_file"`
	DeviceConfig   string `yaml:"device_config_file"`
	Cookie         uint64 `yaml:"cookie,omitempty"`
}

// SeedEntry is one table-entry seed file with an optional format
// override; SeedList's UnmarshalYAML accepts either a bare path string
// or a mapping, mirroring the teacher's PathList scalar-or-list
// handling in internal/config/wing.go.
type SeedEntry struct {
	File   string `yaml:"file" json:"file"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"` // "text" (default) or "proto"
}

// SeedList is a list of SeedEntry values that accepts both plain
// strings ("seed.txt") and mappings ({file: seed.txt, format: proto})
// in the same YAML sequence.
type SeedList []SeedEntry

func (sl *SeedList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return &yaml.TypeError{Errors: []string{"seeds: expected a sequence"}}
	}
	var result SeedList
	for _, item := range value.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			result = append(result, SeedEntry{File: item.Value})
		case yaml.MappingNode:
			var entry SeedEntry
			if err := item.Decode(&entry); err != nil {
				return err
			}
			result = append(result, entry)
		default:
			return &yaml.TypeError{Errors: []string{"seeds: unsupported node kind"}}
		}
	}
	*sl = result
	return nil
}

// Files returns just the file paths.
func (sl SeedList) Files() []string {
	out := make([]string, len(sl))
	for i, e := range sl {
		out[i] = e.File
	}
	return out
}

// SwitchConfig describes one switch in the fleet (spec §3, "Switch",
// Configuration half; spec §6 External Interfaces, "Configuration").
type SwitchConfig struct {
	Name                    string           `yaml:"name"`
	Target                  string           `yaml:"target"`
	DeviceID                uint64           `yaml:"device_id"`
	RoleName                string           `yaml:"role,omitempty"`
	InitialElectionID       uint64           `yaml:"election_id,omitempty"`
	AutoIncrementElectionID bool             `yaml:"auto_increment_election_id,omitempty"`
	TLS                     TLSConfig        `yaml:"tls,omitempty"`
	Pipeline                *PipelineConfig  `yaml:"pipeline,omitempty"`
	Seeds                   SeedList         `yaml:"seeds,omitempty"`
	Reconnect               *ReconnectConfig `yaml:"reconnect,omitempty"`
	UnaryTimeout            time.Duration    `yaml:"unary_timeout,omitempty"`
	DigestAck               *DigestAckConfig `yaml:"digest_ack,omitempty"`
}

// ElectionID converts the configured scalar election id into an
// election.ID (High is always 0 in YAML config; higher election ids
// can only be reached via AutoIncrementElectionID or in-process API
// calls, not initial config).
func (c SwitchConfig) ElectionID() election.ID {
	return election.New(c.InitialElectionID)
}

// ToSessionConfig converts a SwitchConfig into an fswitch.Config ready
// to hand to fswitch.NewSession.
func (c SwitchConfig) ToSessionConfig() fswitch.Config {
	cfg := fswitch.Config{
		DeviceID:                c.DeviceID,
		RoleName:                c.RoleName,
		InitialElectionID:       c.ElectionID(),
		AutoIncrementElectionID: c.AutoIncrementElectionID,
		UnaryTimeout:            c.UnaryTimeout,
		DigestAck:               c.DigestAck.ToFswitch(),
	}
	if c.Reconnect != nil {
		cfg.Backoff = c.Reconnect.Policy()
	}
	return cfg
}

// Config is the top-level document: a named fleet of switches.
type Config struct {
	Switches []SwitchConfig `yaml:"switches"`
}

// SwitchByName looks up one switch's config by name.
func (c *Config) SwitchByName(name string) (SwitchConfig, bool) {
	for _, sw := range c.Switches {
		if sw.Name == name {
			return sw, true
		}
	}
	return SwitchConfig{}, false
}

// Load reads and parses a controller config document from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) validate() error {
	seen := map[string]bool{}
	for _, sw := range c.Switches {
		if sw.Name == "" {
			return fmt.Errorf("switch entry missing name")
		}
		if seen[sw.Name] {
			return fmt.Errorf("duplicate switch name %q", sw.Name)
		}
		seen[sw.Name] = true
		if sw.Target == "" {
			return fmt.Errorf("switch %q missing target", sw.Name)
		}
	}
	return nil
}
