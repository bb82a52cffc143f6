package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
)

// writeTestKey writes a fresh ed25519 key in OpenSSH format, encrypted
// when passphrase is set.
func writeTestKey(t *testing.T, passphrase string) string {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "rendercaps test")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "rendercaps test", []byte(passphrase))
	}
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("HOME", "/home/ci")
	cfg := DefaultConfig("caps.example.com", "ci")

	if cfg.Port != 22 || cfg.AuthMethod != AuthMethodKey || !cfg.StrictHostKeyChecking {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
	if cfg.KnownHostsPath != "/home/ci/.ssh/known_hosts" {
		t.Errorf("known_hosts = %q", cfg.KnownHostsPath)
	}
	if cfg.ConnectionTimeout != 30*time.Second {
		t.Errorf("timeout = %v", cfg.ConnectionTimeout)
	}
}

func TestValidate(t *testing.T) {
	key := writeTestKey(t, "")

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"password", func(c *Config) { c.AuthMethod, c.Password = AuthMethodPassword, "secret" }, ""},
		{"explicit key", func(c *Config) { c.PrivateKeyPath = key }, ""},
		{"no host", func(c *Config) { c.Host = "" }, "host is required"},
		{"port zero", func(c *Config) { c.Port = 0 }, "invalid port"},
		{"port too large", func(c *Config) { c.Port = 70000 }, "invalid port"},
		{"no user", func(c *Config) { c.User = "" }, "user is required"},
		{"no timeout", func(c *Config) { c.ConnectionTimeout = 0 }, "timeout must be positive"},
		{"empty password", func(c *Config) { c.AuthMethod = AuthMethodPassword }, "password is required"},
		{"missing key file", func(c *Config) { c.PrivateKeyPath = "/nonexistent/key" }, "private key file not found"},
		{"no default key", func(c *Config) {}, "no private key configured"},
		{"unknown method", func(c *Config) { c.AuthMethod = "kerberos" }, "unsupported auth method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			cfg := DefaultConfig("caps.example.com", "ci")
			tt.modify(cfg)

			err := cfg.Validate()
			switch {
			case tt.wantErr == "" && err != nil:
				t.Errorf("Validate() error = %v", err)
			case tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)):
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePicksDefaultKey(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.Mkdir(filepath.Join(home, ".ssh"), 0o700); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(home, ".ssh", "id_rsa")
	if err := os.WriteFile(want, []byte("key"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig("caps.example.com", "ci")
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.PrivateKeyPath != want {
		t.Errorf("PrivateKeyPath = %q, want %q", cfg.PrivateKeyPath, want)
	}
}

func TestValidateAgentNeedsSocket(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	cfg := DefaultConfig("caps.example.com", "ci")
	cfg.AuthMethod = AuthMethodAgent

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted agent auth without SSH_AUTH_SOCK")
	}
}

func TestAddress(t *testing.T) {
	cfg := DefaultConfig("example.com", "ci")
	cfg.Port = 2222
	if got := cfg.Address(); got != "example.com:2222" {
		t.Errorf("Address() = %q", got)
	}
	cfg.Host = "::1"
	if got := cfg.Address(); got != "[::1]:2222" {
		t.Errorf("Address() = %q", got)
	}
}

func TestBuildSSHClientConfig(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(t *testing.T, c *Config)
		wantAuths int
		wantErr   bool
	}{
		{
			name: "password with keyboard-interactive",
			modify: func(_ *testing.T, c *Config) {
				c.AuthMethod, c.Password = AuthMethodPassword, "secret"
			},
			wantAuths: 2,
		},
		{
			name: "plain key",
			modify: func(t *testing.T, c *Config) {
				c.PrivateKeyPath = writeTestKey(t, "")
			},
			wantAuths: 1,
		},
		{
			name: "encrypted key",
			modify: func(t *testing.T, c *Config) {
				c.PrivateKeyPath = writeTestKey(t, "hunter2")
				c.PrivateKeyPassphrase = "hunter2"
			},
			wantAuths: 1,
		},
		{
			name: "wrong passphrase",
			modify: func(t *testing.T, c *Config) {
				c.PrivateKeyPath = writeTestKey(t, "hunter2")
				c.PrivateKeyPassphrase = "nope"
			},
			wantErr: true,
		},
		{
			name: "unreachable agent",
			modify: func(t *testing.T, c *Config) {
				t.Setenv("SSH_AUTH_SOCK", filepath.Join(t.TempDir(), "missing.sock"))
				c.AuthMethod = AuthMethodAgent
			},
			wantErr: true,
		},
		{
			name: "strict checking without known_hosts",
			modify: func(t *testing.T, c *Config) {
				c.AuthMethod, c.Password = AuthMethodPassword, "secret"
				c.StrictHostKeyChecking = true
				c.KnownHostsPath = filepath.Join(t.TempDir(), "known_hosts")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("caps.example.com", "ci")
			cfg.StrictHostKeyChecking = false
			tt.modify(t, cfg)

			cc, closer, err := cfg.BuildSSHClientConfig()
			if tt.wantErr {
				if err == nil {
					t.Fatal("BuildSSHClientConfig() succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildSSHClientConfig() error = %v", err)
			}
			defer closer()

			if cc.User != "ci" || len(cc.Auth) != tt.wantAuths || cc.Timeout != cfg.ConnectionTimeout {
				t.Errorf("client config user=%q auths=%d timeout=%v", cc.User, len(cc.Auth), cc.Timeout)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &TransportError{Op: "connect", Err: cause, IsTemporary: true}

	if err.Error() != "connect: connection refused" || !errors.Is(err, cause) || !err.Temporary() {
		t.Errorf("TransportError = %q temporary=%v", err, err.Temporary())
	}

	var te *TransportError
	if !errors.As(error(err), &te) || te.IsAuthError {
		t.Error("errors.As failed or auth flag set")
	}

	if !isAuthFailure(errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password]")) {
		t.Error("rejected handshake not recognised as an auth failure")
	}
	if isAuthFailure(errors.New("dial tcp: i/o timeout")) {
		t.Error("timeout reported as an auth failure")
	}
}
