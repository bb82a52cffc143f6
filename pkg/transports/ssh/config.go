package ssh

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// AuthMethod selects how Dial authenticates.
type AuthMethod string

const (
	AuthMethodPassword AuthMethod = "password"
	AuthMethodKey      AuthMethod = "key"
	// AuthMethodAgent signs with the agent listening on SSH_AUTH_SOCK.
	AuthMethodAgent AuthMethod = "agent"
)

// defaultKeys are tried in order when key auth has no PrivateKeyPath.
var defaultKeys = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

// Config describes one SFTP host serving capability scripts.
type Config struct {
	Host       string     `yaml:"host" json:"host"`
	Port       int        `yaml:"port" json:"port"`
	User       string     `yaml:"user" json:"user"`
	AuthMethod AuthMethod `yaml:"auth_method" json:"auth_method"`

	Password             string `yaml:"password,omitempty" json:"-"`
	PrivateKeyPath       string `yaml:"private_key_path,omitempty" json:"private_key_path,omitempty"`
	PrivateKeyPassphrase string `yaml:"private_key_passphrase,omitempty" json:"-"`

	// KnownHostsPath is consulted only when StrictHostKeyChecking is set.
	// Without strict checking any host key is accepted.
	KnownHostsPath        string `yaml:"known_hosts_path,omitempty" json:"known_hosts_path,omitempty"`
	StrictHostKeyChecking bool   `yaml:"strict_host_key_checking" json:"strict_host_key_checking"`

	ConnectionTimeout time.Duration `yaml:"connection_timeout" json:"connection_timeout"`
}

// DefaultConfig returns key authentication against port 22 with host keys
// checked against ~/.ssh/known_hosts.
func DefaultConfig(host, user string) *Config {
	return &Config{
		Host:                  host,
		Port:                  22,
		User:                  user,
		AuthMethod:            AuthMethodKey,
		KnownHostsPath:        filepath.Join(sshDir(), "known_hosts"),
		StrictHostKeyChecking: true,
		ConnectionTimeout:     30 * time.Second,
	}
}

func sshDir() string {
	return filepath.Join(os.Getenv("HOME"), ".ssh")
}

// Validate reports the first problem with c. For key authentication
// without a key path it picks the first default key that exists.
func (c *Config) Validate() error {
	switch {
	case c.Host == "":
		return errors.New("host is required")
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid port: %d", c.Port)
	case c.User == "":
		return errors.New("user is required")
	case c.ConnectionTimeout <= 0:
		return errors.New("connection timeout must be positive")
	}

	switch c.AuthMethod {
	case AuthMethodPassword:
		if c.Password == "" {
			return errors.New("password is required for password authentication")
		}
	case AuthMethodKey:
		if c.PrivateKeyPath == "" {
			c.PrivateKeyPath = findDefaultKey()
		}
		if c.PrivateKeyPath == "" {
			return fmt.Errorf("no private key configured and none of %v found in %s", defaultKeys, sshDir())
		}
		if _, err := os.Stat(c.PrivateKeyPath); err != nil {
			return fmt.Errorf("private key file not found: %s", c.PrivateKeyPath)
		}
	case AuthMethodAgent:
		if os.Getenv("SSH_AUTH_SOCK") == "" {
			return errors.New("agent authentication requires SSH_AUTH_SOCK")
		}
	default:
		return fmt.Errorf("unsupported auth method: %s", c.AuthMethod)
	}
	return nil
}

func findDefaultKey() string {
	for _, name := range defaultKeys {
		path := filepath.Join(sshDir(), name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// BuildSSHClientConfig creates the x/crypto client configuration. The
// returned closer releases the agent connection, if one was opened.
func (c *Config) BuildSSHClientConfig() (*ssh.ClientConfig, func() error, error) {
	auth, closer, err := c.authMethods()
	if err != nil {
		return nil, nil, err
	}

	hostKeys, err := c.hostKeyCallback()
	if err != nil {
		_ = closer()
		return nil, nil, err
	}

	return &ssh.ClientConfig{
		User:            c.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         c.ConnectionTimeout,
	}, closer, nil
}

func (c *Config) authMethods() ([]ssh.AuthMethod, func() error, error) {
	noop := func() error { return nil }

	switch c.AuthMethod {
	case AuthMethodPassword:
		// Some servers only prompt through keyboard-interactive.
		answer := func(_, _ string, questions []string, _ []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = c.Password
			}
			return answers, nil
		}
		return []ssh.AuthMethod{ssh.Password(c.Password), ssh.KeyboardInteractive(answer)}, noop, nil

	case AuthMethodKey:
		signer, err := c.loadSigner()
		if err != nil {
			return nil, nil, err
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, noop, nil

	case AuthMethodAgent:
		conn, err := net.Dial("unix", os.Getenv("SSH_AUTH_SOCK"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to ssh agent: %w", err)
		}
		return []ssh.AuthMethod{ssh.PublicKeysCallback(agent.NewClient(conn).Signers)}, conn.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported auth method: %s", c.AuthMethod)
	}
}

func (c *Config) loadSigner() (ssh.Signer, error) {
	pem, err := os.ReadFile(c.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	var signer ssh.Signer
	if c.PrivateKeyPassphrase == "" {
		signer, err = ssh.ParsePrivateKey(pem)
	} else {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, []byte(c.PrivateKeyPassphrase))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", c.PrivateKeyPath, err)
	}
	return signer, nil
}

func (c *Config) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if !c.StrictHostKeyChecking || c.KnownHostsPath == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(c.KnownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts: %w", err)
	}
	return cb, nil
}

// Address returns host:port, bracketing IPv6 hosts.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
