package remote

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTPSource connects to a plain or explicit-TLS FTP server.
type FTPSource struct {
	Host     string
	User     string
	Password string
	Secure   bool
	BasePath string
}

func (s *FTPSource) Kind() string { return "ftp" }

func (s *FTPSource) BaseRef() string {
	base := strings.TrimSpace(s.BasePath)
	if base == "" {
		return "/"
	}
	return base
}

func (s *FTPSource) Connect(ctx context.Context) (Conn, error) {
	addr := strings.TrimSpace(s.Host)
	if addr == "" {
		return nil, fmt.Errorf("ftp: no host configured")
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "21")
	}

	opts := []ftp.DialOption{
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(5 * time.Second),
	}
	if s.Secure {
		host, _, _ := net.SplitHostPort(addr)
		opts = append(opts, ftp.DialWithExplicitTLS(&tls.Config{ServerName: host}))
	}

	c, err := ftp.Dial(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("ftp connect: %w", err)
	}

	user := s.User
	if user == "" {
		user = "anonymous"
	}
	if err := c.Login(user, s.Password); err != nil {
		_ = c.Quit()
		return nil, fmt.Errorf("ftp login: %w", err)
	}
	return &ftpConn{client: c}, nil
}

type ftpConn struct {
	client *ftp.ServerConn

	mu     sync.Mutex
	closed bool
}

func (c *ftpConn) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := c.client.List(dir)
	if err != nil {
		return nil, fmt.Errorf("ftp list %s: %w", dir, err)
	}
	entries := make([]Entry, 0, len(raw))
	for _, e := range raw {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		entries = append(entries, Entry{
			Name:  e.Name,
			IsDir: e.Type == ftp.EntryTypeFolder,
			Ref:   joinFTPPath(dir, e.Name),
		})
	}
	return entries, nil
}

func (c *ftpConn) Download(ctx context.Context, path string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r, err := c.client.Retr(path)
	if err != nil {
		return fmt.Errorf("ftp retr %s: %w", path, err)
	}
	defer r.Close()
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("ftp transfer %s: %w", path, err)
	}
	return nil
}

// Close is idempotent; both the timeout watcher and the normal exit path
// call it.
func (c *ftpConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.client.Quit()
}

func joinFTPPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
