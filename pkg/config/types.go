package config

import (
	"fmt"
	"time"

	"github.com/openfroyo/rendercaps/pkg/archive"
	"github.com/openfroyo/rendercaps/pkg/stores"
	"github.com/openfroyo/rendercaps/pkg/telemetry"
	"github.com/openfroyo/rendercaps/pkg/transports/ssh"
)

// Config is the rendercaps configuration file.
type Config struct {
	// Sources are the default script locations: directories, files or
	// s3://, sftp:// and sqlite:// URIs.
	Sources []string `yaml:"sources" json:"sources" validate:"dive,required"`

	// Recursive descends into subdirectories of every source.
	Recursive bool `yaml:"recursive" json:"recursive"`

	// Pattern selects script files by name.
	Pattern string `yaml:"pattern" json:"pattern" validate:"required"`

	// UnknownKeys is the decoder policy for unknown script keys.
	UnknownKeys string `yaml:"unknown_keys" json:"unknown_keys" validate:"oneof=reject skip strict lenient"`

	// Policies are Rego files or directories used by the check command.
	Policies []string `yaml:"policies,omitempty" json:"policies,omitempty" validate:"dive,required"`

	Database  stores.Config           `yaml:"database" json:"database"`
	S3        archive.S3ClientOptions `yaml:"s3" json:"s3"`
	SSH       SSHConfig               `yaml:"ssh" json:"ssh"`
	Watch     WatchConfig             `yaml:"watch" json:"watch"`
	Telemetry telemetry.Config        `yaml:"telemetry" json:"telemetry" validate:"-"`
}

// SSHConfig holds the authentication settings for sftp:// sources. Host,
// port and user come from the URI.
type SSHConfig struct {
	AuthMethod            ssh.AuthMethod `yaml:"auth_method" json:"auth_method" validate:"oneof=password key agent"`
	Password              string         `yaml:"password,omitempty" json:"password,omitempty"`
	PrivateKeyPath        string         `yaml:"private_key_path,omitempty" json:"private_key_path,omitempty"`
	PrivateKeyPassphrase  string         `yaml:"private_key_passphrase,omitempty" json:"private_key_passphrase,omitempty"`
	KnownHostsPath        string         `yaml:"known_hosts_path,omitempty" json:"known_hosts_path,omitempty"`
	StrictHostKeyChecking bool           `yaml:"strict_host_key_checking" json:"strict_host_key_checking"`
	ConnectionTimeout     time.Duration  `yaml:"connection_timeout" json:"connection_timeout" validate:"gte=0"`
}

// Transport builds the ssh transport configuration for one host.
func (c SSHConfig) Transport(host string, port int, user string) *ssh.Config {
	cfg := ssh.DefaultConfig(host, user)
	if port != 0 {
		cfg.Port = port
	}
	cfg.AuthMethod = c.AuthMethod
	cfg.Password = c.Password
	cfg.PrivateKeyPath = c.PrivateKeyPath
	cfg.PrivateKeyPassphrase = c.PrivateKeyPassphrase
	if c.KnownHostsPath != "" {
		cfg.KnownHostsPath = c.KnownHostsPath
	}
	cfg.StrictHostKeyChecking = c.StrictHostKeyChecking
	if c.ConnectionTimeout > 0 {
		cfg.ConnectionTimeout = c.ConnectionTimeout
	}
	return cfg
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Debounce    time.Duration `yaml:"debounce" json:"debounce" validate:"gte=0"`
	MetricsAddr string        `yaml:"metrics_addr,omitempty" json:"metrics_addr,omitempty" validate:"omitempty,hostname_port"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Pattern:     archive.DefaultPattern,
		UnknownKeys: "reject",
		Database: stores.Config{
			Path: "rendercaps.db",
		},
		SSH: SSHConfig{
			AuthMethod:            ssh.AuthMethodKey,
			StrictHostKeyChecking: true,
			ConnectionTimeout:     30 * time.Second,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// ValidationError describes one problem found in a configuration file.
type ValidationError struct {
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, msg)
	case e.File != "":
		return e.File + ": " + msg
	default:
		return msg
	}
}
