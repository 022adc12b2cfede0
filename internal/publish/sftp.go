package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

type Config struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	User      string `json:"user"`
	Password  string `json:"password"`
	RemoteDir string `json:"remote_dir"`

	// exactly one way of verifying the server is used, in this order.
	KnownHostsFile        string `json:"known_hosts_file"`
	HostKeyFingerprint    string `json:"host_key_fingerprint"`
	InsecureIgnoreHostKey bool   `json:"insecure_ignore_host_key"`
}

func (c Config) Enabled() bool {
	return c.Host != ""
}

func (c Config) hostKeyCallback() (ssh.HostKeyCallback, error) {
	switch {
	case c.KnownHostsFile != "":
		return knownhosts.New(c.KnownHostsFile)
	case c.HostKeyFingerprint != "":
		return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			got := ssh.FingerprintSHA256(key)
			if got != c.HostKeyFingerprint {
				return fmt.Errorf("host key fingerprint mismatch: got %s", got)
			}
			return nil
		}, nil
	case c.InsecureIgnoreHostKey:
		return ssh.InsecureIgnoreHostKey(), nil
	default:
		return nil, errors.New("no host key verification configured")
	}
}

func dial(ctx context.Context, cfg Config) (*ssh.Client, error) {
	hostKeyCallback, err := cfg.hostKeyCallback()
	if err != nil {
		return nil, err
	}
	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         20 * time.Second,
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dialer := net.Dialer{Timeout: sshCfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshCfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetDeadline(time.Time{})
	return ssh.NewClient(clientConn, chans, reqs), nil
}

// Upload copies localPath to `<RemoteDir>/<remoteName>` over sftp, creating
// the remote directory when needed.
func Upload(ctx context.Context, cfg Config, localPath, remoteName string) error {
	if cfg.Host == "" || cfg.User == "" {
		return fmt.Errorf("sftp: host and user are required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 22
	}
	if cfg.RemoteDir == "" {
		cfg.RemoteDir = "."
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("sftp: open local file: %w", err)
	}
	defer src.Close()

	sshClient, err := dial(ctx, cfg)
	if err != nil {
		return fmt.Errorf("sftp: dial: %w", err)
	}
	defer sshClient.Close()

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("sftp: new client: %w", err)
	}
	defer client.Close()

	err = client.MkdirAll(cfg.RemoteDir)
	if err != nil {
		return fmt.Errorf("sftp: mkdir %s: %w", cfg.RemoteDir, err)
	}

	remotePath := path.Join(cfg.RemoteDir, remoteName)
	dst, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("sftp: create %s: %w", remotePath, err)
	}
	_, err = io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("sftp: upload %s: %w", remotePath, err)
	}
	return nil
}
