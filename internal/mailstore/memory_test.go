package mailstore

import (
	"errors"
	"io"
	"testing"
)

func TestMemoryFindMailbox(t *testing.T) {
	store := NewMemory()
	store.AddMailbox("INBOX", 42)

	t.Run("finds existing mailbox with its generation", func(t *testing.T) {
		mbox, err := store.FindMailbox("INBOX")
		if err != nil {
			t.Fatalf("FindMailbox failed: %v", err)
		}
		if mbox.Name != "INBOX" || mbox.UIDValidity != 42 {
			t.Errorf("Expected INBOX/42, got %s/%d", mbox.Name, mbox.UIDValidity)
		}
	})

	t.Run("reports unknown mailbox", func(t *testing.T) {
		_, err := store.FindMailbox("Drafts")
		if !errors.Is(err, ErrUnknownReference) {
			t.Errorf("Expected ErrUnknownReference, got %v", err)
		}
	})
}

func TestMemoryMessageResolution(t *testing.T) {
	store := NewMemory()
	store.AddMailbox("INBOX", 42)
	if err := store.AddMessage("INBOX", 7, "Hello", []byte("raw message")); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	ref := MessageRef{Mailbox: "INBOX", UIDValidity: 42, UID: 7}

	t.Run("stats a valid reference", func(t *testing.T) {
		info, err := store.StatMessage(ref)
		if err != nil {
			t.Fatalf("StatMessage failed: %v", err)
		}
		if info.Subject != "Hello" {
			t.Errorf("Expected subject Hello, got %s", info.Subject)
		}
		if info.Size != uint32(len("raw message")) {
			t.Errorf("Expected size %d, got %d", len("raw message"), info.Size)
		}
	})

	t.Run("rejects a stale generation token", func(t *testing.T) {
		stale := ref
		stale.UIDValidity = 41
		_, err := store.StatMessage(stale)
		if !errors.Is(err, ErrUnknownReference) {
			t.Errorf("Expected ErrUnknownReference, got %v", err)
		}
		if store.HasMessage(stale) {
			t.Error("Expected stale reference to not be available")
		}
	})

	t.Run("rejects an unknown uid", func(t *testing.T) {
		missing := ref
		missing.UID = 8
		_, err := store.StatMessage(missing)
		if !errors.Is(err, ErrUnknownReference) {
			t.Errorf("Expected ErrUnknownReference, got %v", err)
		}
	})

	t.Run("opens local content", func(t *testing.T) {
		rc, err := store.OpenMessage(ref)
		if err != nil {
			t.Fatalf("OpenMessage failed: %v", err)
		}
		defer func() { _ = rc.Close() }()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("ReadAll failed: %v", err)
		}
		if string(data) != "raw message" {
			t.Errorf("Expected raw message, got %q", data)
		}
	})
}

func TestMemoryLocality(t *testing.T) {
	store := NewMemory()
	store.AddMailbox("INBOX", 42)
	if err := store.AddMessage("INBOX", 7, "Hello", []byte("raw message")); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if err := store.SetMessageLocal("INBOX", 7, false); err != nil {
		t.Fatalf("SetMessageLocal failed: %v", err)
	}

	ref := MessageRef{Mailbox: "INBOX", UIDValidity: 42, UID: 7}

	t.Run("remote-only content is not available", func(t *testing.T) {
		if store.HasMessage(ref) {
			t.Error("Expected message to be remote-only")
		}
		_, err := store.OpenMessage(ref)
		if !errors.Is(err, ErrContentUnavailable) {
			t.Errorf("Expected ErrContentUnavailable, got %v", err)
		}
	})

	t.Run("preload makes it available", func(t *testing.T) {
		store.PreloadMessage(ref)
		if !store.HasMessage(ref) {
			t.Error("Expected message to be available after preload")
		}
	})

	t.Run("preload of an unknown reference is silent", func(t *testing.T) {
		store.PreloadMessage(MessageRef{Mailbox: "Nope", UIDValidity: 1, UID: 1})
	})
}

func TestMemoryParts(t *testing.T) {
	store := NewMemory()
	store.AddMailbox("INBOX", 42)
	if err := store.AddMessage("INBOX", 7, "Hello", []byte("raw message")); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	info := PartInfo{MIMEType: "image/png", FileName: "cat.png", Encoding: "base64"}
	if err := store.AddPart("INBOX", 7, "2", info, []byte{0x89, 'P', 'N', 'G'}); err != nil {
		t.Fatalf("AddPart failed: %v", err)
	}

	ref := PartRef{Message: MessageRef{Mailbox: "INBOX", UIDValidity: 42, UID: 7}, Section: "2"}

	t.Run("stats a part with defaulted size", func(t *testing.T) {
		got, err := store.StatPart(ref)
		if err != nil {
			t.Fatalf("StatPart failed: %v", err)
		}
		if got.MIMEType != "image/png" || got.FileName != "cat.png" || got.Encoding != "base64" {
			t.Errorf("Unexpected part info: %+v", got)
		}
		if got.Size != 4 {
			t.Errorf("Expected size 4, got %d", got.Size)
		}
	})

	t.Run("opens decoded content", func(t *testing.T) {
		rc, err := store.OpenPart(ref)
		if err != nil {
			t.Fatalf("OpenPart failed: %v", err)
		}
		defer func() { _ = rc.Close() }()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("ReadAll failed: %v", err)
		}
		if string(data) != "\x89PNG" {
			t.Errorf("Unexpected part content: %q", data)
		}
	})

	t.Run("rejects an unknown section", func(t *testing.T) {
		missing := ref
		missing.Section = "3"
		_, err := store.StatPart(missing)
		if !errors.Is(err, ErrUnknownReference) {
			t.Errorf("Expected ErrUnknownReference, got %v", err)
		}
	})

	t.Run("part locality follows its own flag", func(t *testing.T) {
		if err := store.SetPartLocal("INBOX", 7, "2", false); err != nil {
			t.Fatalf("SetPartLocal failed: %v", err)
		}
		if store.HasPart(ref) {
			t.Error("Expected part to be remote-only")
		}
		store.PreloadPart(ref)
		if !store.HasPart(ref) {
			t.Error("Expected part to be available after preload")
		}
	})
}

func TestMemoryURLs(t *testing.T) {
	store := NewMemory()
	store.AddMailbox("Sent Mail", 99)
	if err := store.AddMessage("Sent Mail", 3, "Hi", []byte("x")); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if err := store.AddPart("Sent Mail", 3, "2.1", PartInfo{MIMEType: "text/plain"}, []byte("y")); err != nil {
		t.Fatalf("AddPart failed: %v", err)
	}

	msgRef := MessageRef{Mailbox: "Sent Mail", UIDValidity: 99, UID: 3}
	partRef := PartRef{Message: msgRef, Section: "2.1"}

	t.Run("urls are empty without an account identity", func(t *testing.T) {
		if url := store.MessageURL(msgRef); url != "" {
			t.Errorf("Expected empty URL, got %s", url)
		}
	})

	t.Run("urls follow the imap scheme once enabled", func(t *testing.T) {
		store.EnableURLs("joe", "mail.example.org")
		got := store.MessageURL(msgRef)
		want := "imap://joe@mail.example.org/Sent%20Mail;UIDVALIDITY=99/;UID=3"
		if got != want {
			t.Errorf("Expected %s, got %s", want, got)
		}
		got = store.PartURL(partRef)
		want += "/;SECTION=2.1"
		if got != want {
			t.Errorf("Expected %s, got %s", want, got)
		}
	})

	t.Run("urls are empty for unresolvable references", func(t *testing.T) {
		bad := msgRef
		bad.UIDValidity = 1
		if url := store.MessageURL(bad); url != "" {
			t.Errorf("Expected empty URL, got %s", url)
		}
	})
}
