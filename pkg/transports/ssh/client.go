// Package ssh opens SFTP sessions to hosts that serve capability scripts.
package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// Client is an SSH connection with an SFTP session on top of it.
type Client struct {
	config *Config
	logger zerolog.Logger

	conn       *ssh.Client
	sftp       *sftp.Client
	closeAgent func() error
}

// Dial connects to the host described by config and starts an SFTP session.
func Dial(ctx context.Context, config *Config, logger zerolog.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	clientConfig, closeAgent, err := config.BuildSSHClientConfig()
	if err != nil {
		return nil, &TransportError{
			Op:          "connect",
			Err:         err,
			IsTemporary: false,
			IsAuthError: true,
		}
	}

	c := &Client{
		config:     config,
		logger:     logger.With().Str("component", "ssh").Str("address", config.Address()).Logger(),
		closeAgent: closeAgent,
	}

	if err := c.connect(ctx, clientConfig); err != nil {
		_ = closeAgent()
		return nil, err
	}

	return c, nil
}

func (c *Client) connect(ctx context.Context, clientConfig *ssh.ClientConfig) error {
	address := c.config.Address()
	c.logger.Debug().Msg("establishing SSH connection")

	dialer := net.Dialer{Timeout: c.config.ConnectionTimeout}
	netConn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return &TransportError{
			Op:          "connect",
			Err:         err,
			IsTemporary: true,
		}
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, address, clientConfig)
	if err != nil {
		_ = netConn.Close()
		return &TransportError{
			Op:          "handshake",
			Err:         err,
			IsAuthError: isAuthFailure(err),
		}
	}
	c.conn = ssh.NewClient(sshConn, chans, reqs)

	sftpClient, err := sftp.NewClient(c.conn)
	if err != nil {
		_ = c.conn.Close()
		return &TransportError{
			Op:          "sftp-init",
			Err:         fmt.Errorf("failed to create SFTP client: %w", err),
			IsTemporary: true,
		}
	}
	c.sftp = sftpClient

	c.logger.Info().Msg("SSH connection established")
	return nil
}

// SFTP returns the SFTP session.
func (c *Client) SFTP() *sftp.Client {
	return c.sftp
}

// Close ends the SFTP session and the SSH connection.
func (c *Client) Close() error {
	var errs []error
	if c.sftp != nil {
		errs = append(errs, c.sftp.Close())
	}
	if c.conn != nil {
		errs = append(errs, c.conn.Close())
	}
	if c.closeAgent != nil {
		errs = append(errs, c.closeAgent())
	}
	return errors.Join(errs...)
}

// isAuthFailure recognises the handshake error x/crypto/ssh returns once
// every offered auth method has been rejected.
func isAuthFailure(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}

// TransportError represents an error from the transport layer.
type TransportError struct {
	// Op is the operation that failed (e.g., "connect", "handshake", "open")
	Op string

	// Err is the underlying error
	Err error

	// IsTemporary indicates if the error is temporary and can be retried
	IsTemporary bool

	// IsAuthError indicates if the error is related to authentication
	IsAuthError bool
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Temporary() bool {
	return e.IsTemporary
}
