package attach

import (
	"fmt"
	"io"
	"strings"

	"github.com/honzito/trojita/internal/mailstore"
)

// Part is an attachment referencing one MIME part of a message on the store.
// The store hands out the part's decoded content; the serializer re-encodes
// it in the part's original transfer encoding so that a server-side splice of
// the stored bytes and a client-side upload produce the same message.
type Part struct {
	store mailstore.Store
	ref   mailstore.PartRef
	info  mailstore.PartInfo
	mode  Disposition
}

var _ Attachment = (*Part)(nil)

// NewPart validates the reference against the store, like NewMessage.
func NewPart(store mailstore.Store, ref mailstore.PartRef) (*Part, error) {
	info, err := store.StatPart(ref)
	if err != nil {
		return nil, fmt.Errorf("part %s of message %d in %q: %w", ref.Section, ref.Message.UID, ref.Message.Mailbox, err)
	}
	return &Part{store: store, ref: ref, info: info, mode: DispositionAttachment}, nil
}

// Ref identifies the referenced part.
func (p *Part) Ref() mailstore.PartRef { return p.ref }

func (p *Part) MIMEType() string {
	if p.info.MIMEType == "" {
		return "application/octet-stream"
	}
	return p.info.MIMEType
}

func (p *Part) Caption() string {
	if p.info.FileName == "" {
		return fmt.Sprintf("message %d part %s", p.ref.Message.UID, p.ref.Section)
	}
	return p.info.FileName
}

func (p *Part) Tooltip() string {
	return fmt.Sprintf("IMAP part %s of message %d in %s, %d bytes", p.ref.Section, p.ref.Message.UID, p.ref.Message.Mailbox, p.info.Size)
}

func (p *Part) DispositionHeader() []byte {
	return dispositionHeader(p.mode, p.info.FileName)
}

func (p *Part) DispositionMode() Disposition { return p.mode }

func (p *Part) SetDispositionMode(mode Disposition) bool {
	if p.mode == mode {
		return false
	}
	p.mode = mode
	return true
}

func (p *Part) SetCaption(string) bool { return false }

func (p *Part) SuggestedEncoding() Encoding {
	switch strings.ToLower(p.info.Encoding) {
	case "base64":
		return EncodingBase64
	case "quoted-printable":
		return EncodingQuotedPrintable
	case "8bit":
		return EncodingEightBit
	case "binary":
		return EncodingBinary
	default:
		return EncodingSevenBit
	}
}

func (p *Part) IsAvailableLocally() bool { return p.store.HasPart(p.ref) }

func (p *Part) Open() (io.ReadCloser, error) { return p.store.OpenPart(p.ref) }

func (p *Part) RemoteReference() string { return p.store.PartURL(p.ref) }

func (p *Part) Preload() { p.store.PreloadPart(p.ref) }

func (p *Part) isAttachment() {}
