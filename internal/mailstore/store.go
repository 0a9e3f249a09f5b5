// Package mailstore defines the read-only view of the user's mailboxes that
// referential attachments resolve against. The composer core never writes to
// a store; it looks up mailboxes, stats messages and parts, and reads their
// content once it is available locally.
package mailstore

import (
	"errors"
	"io"
)

var (
	// ErrUnknownReference means the mailbox, message or part a reference
	// points to cannot presently be resolved.
	ErrUnknownReference = errors.New("unknown message or part reference")

	// ErrContentUnavailable means the reference is valid but its bytes have
	// not been fetched yet.
	ErrContentUnavailable = errors.New("content not available locally")
)

// Mailbox is one mailbox together with its current UIDVALIDITY generation.
type Mailbox struct {
	Name        string
	UIDValidity uint32
}

// MessageRef identifies one message by mailbox name, the UIDVALIDITY
// generation the UID was issued under, and the UID itself.
type MessageRef struct {
	Mailbox     string
	UIDValidity uint32
	UID         uint32
}

// PartRef identifies one MIME part of a referenced message. Section is the
// dotted IMAP body section locator, e.g. "2" or "2.1".
type PartRef struct {
	Message MessageRef
	Section string
}

// MessageInfo carries the metadata the composer needs about a referenced
// message.
type MessageInfo struct {
	Subject string
	Size    uint32
}

// PartInfo carries the metadata the composer needs about a referenced part.
// Encoding is the part's Content-Transfer-Encoding label as stored on the
// server, lowercase ("base64", "quoted-printable", "7bit", "8bit", "binary").
type PartInfo struct {
	MIMEType string
	FileName string
	Encoding string
	Size     uint32
}

// Store resolves attachment references. FindMailbox and Stat* may talk to
// the server; Has* and Open* never do. Open* returns locally cached bytes or
// ErrContentUnavailable. Preload* may fetch in the background and never
// reports failure, callers re-check availability via Has*.
//
// OpenPart yields the part's decoded content; the original transfer encoding
// travels separately in PartInfo.Encoding.
type Store interface {
	FindMailbox(name string) (Mailbox, error)
	StatMessage(ref MessageRef) (MessageInfo, error)
	StatPart(ref PartRef) (PartInfo, error)

	HasMessage(ref MessageRef) bool
	HasPart(ref PartRef) bool

	OpenMessage(ref MessageRef) (io.ReadCloser, error)
	OpenPart(ref PartRef) (io.ReadCloser, error)

	PreloadMessage(ref MessageRef)
	PreloadPart(ref PartRef)

	// MessageURL and PartURL return an RFC 5092 locator for the referenced
	// content, or "" when the store cannot be addressed that way.
	MessageURL(ref MessageRef) string
	PartURL(ref PartRef) string
}
