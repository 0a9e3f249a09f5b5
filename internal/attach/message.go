package attach

import (
	"fmt"
	"io"

	"github.com/honzito/trojita/internal/mailstore"
)

// Message is an attachment referencing one whole message on the store. It is
// serialized as message/rfc822 with the original bytes passed through
// unchanged.
type Message struct {
	store   mailstore.Store
	ref     mailstore.MessageRef
	subject string
	mode    Disposition
}

var _ Attachment = (*Message)(nil)

// NewMessage validates the reference against the store. This is the only
// point where a dangling reference surfaces; an attachment that constructed
// successfully stays in the list even if the source message disappears later.
func NewMessage(store mailstore.Store, ref mailstore.MessageRef) (*Message, error) {
	info, err := store.StatMessage(ref)
	if err != nil {
		return nil, fmt.Errorf("message %d in %q: %w", ref.UID, ref.Mailbox, err)
	}
	return &Message{store: store, ref: ref, subject: info.Subject, mode: DispositionAttachment}, nil
}

// Ref identifies the referenced message.
func (m *Message) Ref() mailstore.MessageRef { return m.ref }

func (m *Message) MIMEType() string { return "message/rfc822" }

func (m *Message) Caption() string {
	if m.subject == "" {
		return fmt.Sprintf("message %d", m.ref.UID)
	}
	return m.subject
}

func (m *Message) Tooltip() string {
	return fmt.Sprintf("IMAP message %d in %s", m.ref.UID, m.ref.Mailbox)
}

func (m *Message) DispositionHeader() []byte {
	return dispositionHeader(m.mode, m.Caption()+".eml")
}

func (m *Message) DispositionMode() Disposition { return m.mode }

func (m *Message) SetDispositionMode(mode Disposition) bool {
	if m.mode == mode {
		return false
	}
	m.mode = mode
	return true
}

func (m *Message) SetCaption(string) bool { return false }

func (m *Message) SuggestedEncoding() Encoding { return EncodingSevenBit }

func (m *Message) IsAvailableLocally() bool { return m.store.HasMessage(m.ref) }

func (m *Message) Open() (io.ReadCloser, error) { return m.store.OpenMessage(m.ref) }

func (m *Message) RemoteReference() string { return m.store.MessageURL(m.ref) }

func (m *Message) Preload() { m.store.PreloadMessage(m.ref) }

func (m *Message) isAttachment() {}
