package attach

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/honzito/trojita/internal/mailstore"
)

func TestFileAttachment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("some notes"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	t.Run("caption defaults to the base name", func(t *testing.T) {
		f := NewFile(path)
		if f.Caption() != "notes.txt" {
			t.Errorf("Expected notes.txt, got %s", f.Caption())
		}
	})

	t.Run("text files suggest quoted-printable", func(t *testing.T) {
		f := NewFile(path)
		if f.MIMEType() != "text/plain" {
			t.Errorf("Expected text/plain, got %s", f.MIMEType())
		}
		if f.SuggestedEncoding() != EncodingQuotedPrintable {
			t.Errorf("Expected quoted-printable, got %s", f.SuggestedEncoding())
		}
	})

	t.Run("binary files suggest base64", func(t *testing.T) {
		f := NewFile("/tmp/photo.png")
		if f.MIMEType() != "image/png" {
			t.Errorf("Expected image/png, got %s", f.MIMEType())
		}
		if f.SuggestedEncoding() != EncodingBase64 {
			t.Errorf("Expected base64, got %s", f.SuggestedEncoding())
		}
	})

	t.Run("unknown extensions fall back to octet-stream", func(t *testing.T) {
		f := NewFile("/tmp/core.xyzzy")
		if f.MIMEType() != "application/octet-stream" {
			t.Errorf("Expected application/octet-stream, got %s", f.MIMEType())
		}
	})

	t.Run("existing readable file is available", func(t *testing.T) {
		f := NewFile(path)
		if !f.IsAvailableLocally() {
			t.Error("Expected file to be available")
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer func() { _ = rc.Close() }()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("ReadAll failed: %v", err)
		}
		if string(data) != "some notes" {
			t.Errorf("Unexpected content %q", data)
		}
	})

	t.Run("missing file is not available", func(t *testing.T) {
		f := NewFile(filepath.Join(dir, "gone.txt"))
		if f.IsAvailableLocally() {
			t.Error("Expected file to be unavailable")
		}
		_, err := f.Open()
		if !errors.Is(err, mailstore.ErrContentUnavailable) {
			t.Errorf("Expected ErrContentUnavailable, got %v", err)
		}
	})

	t.Run("directories are not available", func(t *testing.T) {
		f := NewFile(dir)
		if f.IsAvailableLocally() {
			t.Error("Expected directory to be unavailable")
		}
	})

	t.Run("caption rename is tracked", func(t *testing.T) {
		f := NewFile(path)
		if !f.SetCaption("renamed.txt") {
			t.Error("Expected rename to report a change")
		}
		if f.SetCaption("renamed.txt") {
			t.Error("Expected same-value rename to report no change")
		}
		header := string(f.DispositionHeader())
		if header != "Content-Disposition: attachment; filename=renamed.txt\r\n" {
			t.Errorf("Unexpected header %q", header)
		}
	})

	t.Run("no remote reference", func(t *testing.T) {
		f := NewFile(path)
		if f.RemoteReference() != "" {
			t.Errorf("Expected empty remote reference, got %s", f.RemoteReference())
		}
	})
}

func TestDispositionHeader(t *testing.T) {
	t.Run("inline mode", func(t *testing.T) {
		f := NewFile("/tmp/a.txt")
		if !f.SetDispositionMode(DispositionInline) {
			t.Error("Expected mode switch to report a change")
		}
		if f.SetDispositionMode(DispositionInline) {
			t.Error("Expected same-value switch to report no change")
		}
		header := string(f.DispositionHeader())
		if header != "Content-Disposition: inline; filename=a.txt\r\n" {
			t.Errorf("Unexpected header %q", header)
		}
	})

	t.Run("non-ascii file names use the rfc 2231 form", func(t *testing.T) {
		f := NewFile("/tmp/příloha.txt")
		header := string(f.DispositionHeader())
		if !strings.Contains(header, "filename*=utf-8''p%C5%99%C3%ADloha.txt") {
			t.Errorf("Expected an rfc 2231 encoded filename, got %q", header)
		}
	})

	t.Run("file names with spaces are quoted", func(t *testing.T) {
		f := NewFile("/tmp/my notes.txt")
		header := string(f.DispositionHeader())
		if header != "Content-Disposition: attachment; filename=\"my notes.txt\"\r\n" {
			t.Errorf("Unexpected header %q", header)
		}
	})
}

func newTestStore(t *testing.T) *mailstore.Memory {
	t.Helper()
	store := mailstore.NewMemory()
	store.AddMailbox("INBOX", 333)
	if err := store.AddMessage("INBOX", 10, "Weekly report", []byte("From: boss@example.org\r\n\r\nnumbers\r\n")); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	info := mailstore.PartInfo{MIMEType: "application/pdf", FileName: "report.pdf", Encoding: "base64"}
	if err := store.AddPart("INBOX", 10, "2", info, []byte("%PDF-1.4")); err != nil {
		t.Fatalf("AddPart failed: %v", err)
	}
	return store
}

func TestMessageAttachment(t *testing.T) {
	store := newTestStore(t)
	ref := mailstore.MessageRef{Mailbox: "INBOX", UIDValidity: 333, UID: 10}

	t.Run("construction validates the reference", func(t *testing.T) {
		bad := ref
		bad.UID = 999
		_, err := NewMessage(store, bad)
		if !errors.Is(err, mailstore.ErrUnknownReference) {
			t.Errorf("Expected ErrUnknownReference, got %v", err)
		}
	})

	t.Run("caption is the subject", func(t *testing.T) {
		m, err := NewMessage(store, ref)
		if err != nil {
			t.Fatalf("NewMessage failed: %v", err)
		}
		if m.Caption() != "Weekly report" {
			t.Errorf("Expected Weekly report, got %s", m.Caption())
		}
		if m.SetCaption("other") {
			t.Error("Expected message caption to be immutable")
		}
	})

	t.Run("serializes as a message part", func(t *testing.T) {
		m, err := NewMessage(store, ref)
		if err != nil {
			t.Fatalf("NewMessage failed: %v", err)
		}
		if m.MIMEType() != "message/rfc822" {
			t.Errorf("Expected message/rfc822, got %s", m.MIMEType())
		}
		if m.SuggestedEncoding() != EncodingSevenBit {
			t.Errorf("Expected 7bit, got %s", m.SuggestedEncoding())
		}
		header := string(m.DispositionHeader())
		if header != "Content-Disposition: attachment; filename=\"Weekly report.eml\"\r\n" {
			t.Errorf("Unexpected header %q", header)
		}
	})

	t.Run("availability and content come from the store", func(t *testing.T) {
		m, err := NewMessage(store, ref)
		if err != nil {
			t.Fatalf("NewMessage failed: %v", err)
		}
		if err := store.SetMessageLocal("INBOX", 10, false); err != nil {
			t.Fatalf("SetMessageLocal failed: %v", err)
		}
		if m.IsAvailableLocally() {
			t.Error("Expected message to be unavailable")
		}
		m.Preload()
		if !m.IsAvailableLocally() {
			t.Error("Expected message to be available after preload")
		}
		rc, err := m.Open()
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer func() { _ = rc.Close() }()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("ReadAll failed: %v", err)
		}
		if !strings.HasPrefix(string(data), "From: boss@example.org") {
			t.Errorf("Unexpected content %q", data)
		}
	})

	t.Run("remote reference appears once the store has an identity", func(t *testing.T) {
		m, err := NewMessage(store, ref)
		if err != nil {
			t.Fatalf("NewMessage failed: %v", err)
		}
		if m.RemoteReference() != "" {
			t.Errorf("Expected empty reference, got %s", m.RemoteReference())
		}
		store.EnableURLs("joe", "mail.example.org")
		want := "imap://joe@mail.example.org/INBOX;UIDVALIDITY=333/;UID=10"
		if m.RemoteReference() != want {
			t.Errorf("Expected %s, got %s", want, m.RemoteReference())
		}
	})
}

func TestPartAttachment(t *testing.T) {
	store := newTestStore(t)
	msgRef := mailstore.MessageRef{Mailbox: "INBOX", UIDValidity: 333, UID: 10}
	ref := mailstore.PartRef{Message: msgRef, Section: "2"}

	t.Run("construction validates the reference", func(t *testing.T) {
		bad := ref
		bad.Section = "9"
		_, err := NewPart(store, bad)
		if !errors.Is(err, mailstore.ErrUnknownReference) {
			t.Errorf("Expected ErrUnknownReference, got %v", err)
		}
	})

	t.Run("metadata comes from the stored part", func(t *testing.T) {
		p, err := NewPart(store, ref)
		if err != nil {
			t.Fatalf("NewPart failed: %v", err)
		}
		if p.MIMEType() != "application/pdf" {
			t.Errorf("Expected application/pdf, got %s", p.MIMEType())
		}
		if p.Caption() != "report.pdf" {
			t.Errorf("Expected report.pdf, got %s", p.Caption())
		}
		if p.SuggestedEncoding() != EncodingBase64 {
			t.Errorf("Expected base64, got %s", p.SuggestedEncoding())
		}
	})

	t.Run("open yields the decoded content", func(t *testing.T) {
		p, err := NewPart(store, ref)
		if err != nil {
			t.Fatalf("NewPart failed: %v", err)
		}
		rc, err := p.Open()
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer func() { _ = rc.Close() }()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("ReadAll failed: %v", err)
		}
		if string(data) != "%PDF-1.4" {
			t.Errorf("Unexpected content %q", data)
		}
	})

	t.Run("nameless parts derive a caption and omit the filename", func(t *testing.T) {
		if err := store.AddPart("INBOX", 10, "3", mailstore.PartInfo{MIMEType: "text/html", Encoding: "quoted-printable"}, []byte("<p>hi</p>")); err != nil {
			t.Fatalf("AddPart failed: %v", err)
		}
		p, err := NewPart(store, mailstore.PartRef{Message: msgRef, Section: "3"})
		if err != nil {
			t.Fatalf("NewPart failed: %v", err)
		}
		if p.Caption() != "message 10 part 3" {
			t.Errorf("Unexpected caption %s", p.Caption())
		}
		if string(p.DispositionHeader()) != "Content-Disposition: attachment\r\n" {
			t.Errorf("Unexpected header %q", p.DispositionHeader())
		}
	})

	t.Run("unknown encoding labels default to 7bit", func(t *testing.T) {
		if err := store.AddPart("INBOX", 10, "4", mailstore.PartInfo{MIMEType: "text/plain", Encoding: "x-unknown"}, []byte("a")); err != nil {
			t.Fatalf("AddPart failed: %v", err)
		}
		p, err := NewPart(store, mailstore.PartRef{Message: msgRef, Section: "4"})
		if err != nil {
			t.Fatalf("NewPart failed: %v", err)
		}
		if p.SuggestedEncoding() != EncodingSevenBit {
			t.Errorf("Expected 7bit, got %s", p.SuggestedEncoding())
		}
	})
}
