package commands

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/openfroyo/rendercaps/pkg/archive"
	"github.com/openfroyo/rendercaps/pkg/config"
	"github.com/openfroyo/rendercaps/pkg/stores"
	"github.com/openfroyo/rendercaps/pkg/transports/ssh"
)

// source is a resolved script location.
type source struct {
	uri     string
	archive archive.Archive
	locator string
	close   func() error
}

// resolveSource maps a source argument to an archive and locator:
//
//	caps/ or file:///srv/caps      local directory or file
//	s3://bucket/prefix             S3 objects under prefix
//	sftp://user@host[:port]/path   files on an SFTP server
//	sqlite:///path/profiles.db     profiles in a store, ?source= narrows by origin
func resolveSource(ctx context.Context, cfg *config.Config, logger zerolog.Logger, uri string) (*source, error) {
	pattern := archive.WithPattern(cfg.Pattern)
	noop := func() error { return nil }

	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		fs, err := archive.NewFileSystem(pattern)
		if err != nil {
			return nil, err
		}
		return &source{uri: uri, archive: fs, locator: uri, close: noop}, nil
	}

	switch scheme {
	case "file":
		fs, err := archive.NewFileSystem(pattern)
		if err != nil {
			return nil, err
		}
		return &source{uri: uri, archive: fs, locator: rest, close: noop}, nil

	case "s3":
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return nil, fmt.Errorf("%s: missing bucket", uri)
		}
		client, err := archive.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		arc, err := archive.NewS3(client, bucket, pattern)
		if err != nil {
			return nil, err
		}
		return &source{uri: uri, archive: arc, locator: prefix, close: noop}, nil

	case "sftp":
		u, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("invalid source %s: %w", uri, err)
		}
		port := 0
		if p := u.Port(); p != "" {
			if port, err = strconv.Atoi(p); err != nil {
				return nil, fmt.Errorf("%s: invalid port %q", uri, p)
			}
		}
		sshCfg := cfg.SSH.Transport(u.Hostname(), port, u.User.Username())
		if pw, ok := u.User.Password(); ok {
			sshCfg.AuthMethod = ssh.AuthMethodPassword
			sshCfg.Password = pw
		}
		client, err := ssh.Dial(ctx, sshCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", u.Host, err)
		}
		arc, err := archive.NewSFTP(client.SFTP(), pattern)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		locator := u.Path
		if locator == "" {
			locator = "."
		}
		return &source{uri: uri, archive: arc, locator: locator, close: client.Close}, nil

	case "sqlite":
		u, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("invalid source %s: %w", uri, err)
		}
		dbCfg := cfg.Database
		dbCfg.Path = u.Host + u.Path
		store, err := openStore(ctx, dbCfg)
		if err != nil {
			return nil, err
		}
		return &source{uri: uri, archive: store, locator: u.Query().Get("source"), close: store.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported source scheme %q in %s", scheme, uri)
	}
}

// openStore opens and migrates a profile store.
func openStore(ctx context.Context, cfg stores.Config) (*stores.SQLiteStore, error) {
	store, err := stores.NewSQLiteStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
