// Package remote runs commands on the deployed instance over SSH.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"nathanbeddoewebdev/sdcomfy/internal/retry"

	"golang.org/x/crypto/ssh"
)

const (
	// DefaultUser is the login user of the instance's image.
	DefaultUser = "ubuntu"

	defaultPort        = "22"
	defaultDialTimeout = 10 * time.Second
)

// Client connects to one host with a private key.
type Client struct {
	host   string
	user   string
	signer ssh.Signer

	dialTimeout time.Duration
	retry       retry.Policy
}

// NewClient returns a client for host (optionally host:port) authenticating
// as user with signer.
func NewClient(host, user string, signer ssh.Signer) *Client {
	if user == "" {
		user = DefaultUser
	}
	return &Client{
		host:        host,
		user:        user,
		signer:      signer,
		dialTimeout: defaultDialTimeout,
		retry:       retry.Boot(),
	}
}

// Address returns the host:port the client dials.
func (c *Client) Address() string {
	if _, _, err := net.SplitHostPort(c.host); err == nil {
		return c.host
	}
	return net.JoinHostPort(c.host, defaultPort)
}

// Run executes command and writes its combined output to w. Cancelling
// ctx closes the session.
func (c *Client) Run(ctx context.Context, command string, w io.Writer) error {
	client, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	session.Stdout = w
	session.Stderr = w

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		_ = session.Close()
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("remote command failed: %w", err)
		}
		return nil
	}
}

// Tail writes the last lines of path to w. When follow is set it keeps
// streaming until ctx is cancelled.
func (c *Client) Tail(ctx context.Context, path string, lines int, follow bool, w io.Writer) error {
	err := c.Run(ctx, TailCommand(path, lines, follow), w)
	if follow && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// TailCommand builds the shell command Tail runs.
func TailCommand(path string, lines int, follow bool) string {
	if lines <= 0 {
		lines = 100
	}
	args := []string{"sudo", "-n", "tail", "-n", strconv.Itoa(lines)}
	if follow {
		args = append(args, "-F")
	}
	args = append(args, shellQuote(path))
	return strings.Join(args, " ")
}

func (c *Client) dial(ctx context.Context) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User:            c.user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(c.signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // instance host keys are generated at first boot
		Timeout:         c.dialTimeout,
	}

	var client *ssh.Client
	err := retry.Do(ctx, c.retry, isDialRetryable, func(attemptCtx context.Context) error {
		var dialErr error
		client, dialErr = dialContext(attemptCtx, c.Address(), config)
		return dialErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", c.Address(), err)
	}
	return client, nil
}

func dialContext(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	d := net.Dialer{Timeout: config.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}

// isDialRetryable retries network failures; authentication failures are final.
func isDialRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if strings.Contains(err.Error(), "unable to authenticate") {
		return false
	}
	return retry.IsTransient(err)
}

// HostFromEndpoint extracts the host name from an application endpoint of
// the form host:port, with or without a scheme.
func HostFromEndpoint(endpoint string) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if i := strings.Index(endpoint, "://"); i >= 0 {
		endpoint = endpoint[i+3:]
	}
	endpoint = strings.TrimSuffix(endpoint, "/")
	if endpoint == "" {
		return "", fmt.Errorf("endpoint is empty")
	}
	host, _, err := net.SplitHostPort(endpoint)
	if err != nil {
		return endpoint, nil
	}
	if host == "" {
		return "", fmt.Errorf("endpoint %q has no host", endpoint)
	}
	return host, nil
}

func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r == '/' || r == '.' || r == '-' || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
