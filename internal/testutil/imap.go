// Package testutil runs in-process IMAP and SMTP servers so integration
// tests exercise real protocol round trips without external services.
package testutil

import (
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
)

// TestIMAPServer is an in-process IMAP server with an in-memory backend.
type TestIMAPServer struct {
	Server   *server.Server
	Address  string
	Backend  *memory.Backend
	cleanup  func()
	username string
	password string
}

// NewTestIMAPServerOn starts the server on the given address; the port may
// be 0 for an ephemeral one. The memory backend ships with one default
// account ("username" / "password").
func NewTestIMAPServerOn(address string) (*TestIMAPServer, error) {
	be := memory.New()
	s := server.New(be)
	s.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	go func() {
		// Serve returns once the server is closed.
		_ = s.Serve(listener)
	}()

	// Give the listener goroutine time to start accepting
	time.Sleep(100 * time.Millisecond)

	return &TestIMAPServer{
		Server:   s,
		Address:  listener.Addr().String(),
		Backend:  be,
		cleanup:  func() { _ = s.Close() },
		username: "username",
		password: "password",
	}, nil
}

// NewTestIMAPServer starts the server on a random local port.
func NewTestIMAPServer(t *testing.T) *TestIMAPServer {
	t.Helper()

	s, err := NewTestIMAPServerOn("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start IMAP server: %v", err)
	}
	return s
}

// Close shuts down the server.
func (s *TestIMAPServer) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// Username returns the default test username.
func (s *TestIMAPServer) Username() string {
	return s.username
}

// Password returns the default test password.
func (s *TestIMAPServer) Password() string {
	return s.password
}

func (s *TestIMAPServer) connect() (*imapclient.Client, error) {
	c, err := imapclient.Dial(s.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := c.Login(s.username, s.password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("failed to login: %w", err)
	}
	return c, nil
}

// Connect opens and authenticates a fresh client connection.
func (s *TestIMAPServer) Connect(t *testing.T) (*imapclient.Client, func()) {
	t.Helper()

	c, err := s.connect()
	if err != nil {
		t.Fatalf("Failed to connect to test server: %v", err)
	}
	return c, func() { _ = c.Logout() }
}

// EnsureINBOX makes sure the INBOX folder exists for the default user.
func (s *TestIMAPServer) EnsureINBOX(t *testing.T) {
	t.Helper()

	c, cleanup := s.Connect(t)
	defer cleanup()

	if _, err := c.Select("INBOX", false); err != nil {
		if err := c.Create("INBOX"); err != nil {
			t.Fatalf("Failed to create INBOX: %v", err)
		}
		if _, err := c.Select("INBOX", false); err != nil {
			t.Fatalf("Failed to select INBOX: %v", err)
		}
	}
}

// Seed creates the folder if needed, appends a complete RFC 822 message and
// returns its UID, located through a UID SEARCH on the given Message-ID.
func (s *TestIMAPServer) Seed(folder, messageID, raw string) (uint32, error) {
	c, err := s.connect()
	if err != nil {
		return 0, err
	}
	defer func() { _ = c.Logout() }()

	if _, err := c.Select(folder, false); err != nil {
		if err := c.Create(folder); err != nil {
			return 0, fmt.Errorf("failed to create %s: %w", folder, err)
		}
		if _, err := c.Select(folder, false); err != nil {
			return 0, fmt.Errorf("failed to select %s: %w", folder, err)
		}
	}

	flags := []string{imap.SeenFlag}
	if err := c.Append(folder, flags, time.Now(), strings.NewReader(raw)); err != nil {
		return 0, fmt.Errorf("failed to append message: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("Message-ID", messageID)
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return 0, fmt.Errorf("failed to search for message: %w", err)
	}
	if len(uids) == 0 {
		return 0, fmt.Errorf("message %s not found after append", messageID)
	}
	return uids[0], nil
}

// AddMessage appends a simple plain-text message and returns its UID.
func (s *TestIMAPServer) AddMessage(t *testing.T, folder, messageID, subject, from, to string, sentAt time.Time) uint32 {
	t.Helper()

	raw := fmt.Sprintf("Message-ID: %s\r\n"+
		"Date: %s\r\n"+
		"From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"Content-Type: text/plain; charset=utf-8\r\n"+
		"\r\n"+
		"Test message body.\r\n",
		messageID, sentAt.Format(time.RFC1123Z), from, to, subject)

	return s.AppendRaw(t, folder, messageID, raw)
}

// AppendRaw appends a complete RFC 822 message and returns its UID.
func (s *TestIMAPServer) AppendRaw(t *testing.T, folder, messageID, raw string) uint32 {
	t.Helper()

	uid, err := s.Seed(folder, messageID, raw)
	if err != nil {
		t.Fatalf("Failed to append message: %v", err)
	}
	return uid
}
