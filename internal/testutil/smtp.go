package testutil

import (
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// ReceivedMessage is one submission captured by the SMTP sink, with the
// envelope exactly as the client sent it.
type ReceivedMessage struct {
	From string
	To   []string
	Data []byte
}

// SMTPSink is an in-memory SMTP backend that stores everything it receives.
type SMTPSink struct {
	mu       sync.Mutex
	messages []*ReceivedMessage
}

func NewSMTPSink() *SMTPSink {
	return &SMTPSink{}
}

// NewSession implements the go-smtp backend interface.
func (b *SMTPSink) NewSession(*smtp.Conn) (smtp.Session, error) {
	return &sinkSession{backend: b}, nil
}

// Messages returns all captured submissions in arrival order.
func (b *SMTPSink) Messages() []*ReceivedMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*ReceivedMessage(nil), b.messages...)
}

// Clear drops every captured submission.
func (b *SMTPSink) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = nil
}

type sinkSession struct {
	backend *SMTPSink
	from    string
	to      []string
}

func (s *sinkSession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

// Auth accepts any credentials.
func (s *sinkSession) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(identity, username, password string) error {
		return nil
	}), nil
}

func (s *sinkSession) Mail(from string, opts *smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *sinkSession) Rcpt(to string, opts *smtp.RcptOptions) error {
	s.to = append(s.to, to)
	return nil
}

func (s *sinkSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.messages = append(s.backend.messages, &ReceivedMessage{
		From: s.from,
		To:   append([]string(nil), s.to...),
		Data: data,
	})
	return nil
}

func (s *sinkSession) Reset() {
	s.from = ""
	s.to = nil
}

func (s *sinkSession) Logout() error {
	return nil
}

// TestSMTPServer is an in-process SMTP server backed by an SMTPSink.
type TestSMTPServer struct {
	Server  *smtp.Server
	Address string
	Sink    *SMTPSink
	cleanup func()
}

// NewTestSMTPServerOn starts the server on the given address; the port may
// be 0 for an ephemeral one. Any credentials authenticate.
func NewTestSMTPServerOn(address string) (*TestSMTPServer, error) {
	sink := NewSMTPSink()
	s := smtp.NewServer(sink)
	s.AllowInsecureAuth = true
	s.Domain = "localhost"

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

	return &TestSMTPServer{
		Server:  s,
		Address: listener.Addr().String(),
		Sink:    sink,
		cleanup: func() { _ = s.Close() },
	}, nil
}

// NewTestSMTPServer starts the server on a random local port.
func NewTestSMTPServer(t *testing.T) *TestSMTPServer {
	t.Helper()

	s, err := NewTestSMTPServerOn("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start SMTP server: %v", err)
	}
	return s
}

// Close shuts down the server.
func (s *TestSMTPServer) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// Messages returns all submissions captured so far.
func (s *TestSMTPServer) Messages() []*ReceivedMessage {
	return s.Sink.Messages()
}
