// Package compose builds outgoing mail. A Composer collects the envelope,
// the body text and an ordered attachment list, then serializes the whole
// thing either as one raw RFC 5322 stream or as catenate fragments that let
// an IMAP server splice in bytes it already has.
package compose

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/honzito/trojita/internal/attach"
	"github.com/honzito/trojita/internal/dragdrop"
	"github.com/honzito/trojita/internal/mailstore"
)

// Observer is told about structural changes to the attachment list. Indexes
// refer to positions at the moment of the call.
type Observer interface {
	AttachmentsAdded(first, last int)
	AttachmentRemoved(index int)
	AttachmentMoved(from, to int)
	AttachmentChanged(index int)
}

// ForwardMode selects how a forwarded message rides along.
type ForwardMode int

const (
	// ForwardAsAttachment carries the complete original as an inline
	// message/rfc822 part.
	ForwardAsAttachment ForwardMode = iota
)

// Composer is one message-in-progress. It is not safe for concurrent use;
// a composition session belongs to a single goroutine.
type Composer struct {
	store mailstore.Store

	from         Address
	recipients   []Recipient
	subject      string
	text         string
	organization string
	timestamp    time.Time
	inReplyTo    []string
	references   []string

	replyingTo *mailstore.MessageRef
	forwarding *mailstore.MessageRef

	attachments []attach.Attachment

	preload        bool
	reportVersions bool

	observer Observer

	// Generated once per session so that repeated serialization and the
	// draft-versus-submission paths agree on every identifier.
	messageID func() string
	boundary  func() string
	now       func() time.Time
}

// NewComposer starts an empty session. The store resolves mail references
// dropped into the session; it may be nil when only local files are used.
func NewComposer(store mailstore.Store) *Composer {
	c := &Composer{store: store, reportVersions: true}
	c.messageID = sync.OnceValue(func() string {
		domain := c.from.Host
		if domain == "" {
			domain = "localhost"
		}
		return uuid.NewString() + "@" + domain
	})
	c.boundary = sync.OnceValue(func() string {
		// "=_" cannot occur in quoted-printable output, so the boundary
		// never collides with the encoded body.
		return "trojita=_" + uuid.NewString()
	})
	c.now = sync.OnceValue(time.Now)
	return c
}

// SetObserver installs the change listener. Passing nil detaches it.
func (c *Composer) SetObserver(o Observer) { c.observer = o }

func (c *Composer) SetFrom(a Address)            { c.from = a }
func (c *Composer) SetRecipients(rs []Recipient) { c.recipients = rs }
func (c *Composer) SetSubject(s string)          { c.subject = s }
func (c *Composer) SetText(t string)             { c.text = t }
func (c *Composer) SetOrganization(o string)     { c.organization = o }
func (c *Composer) SetInReplyTo(ids []string)    { c.inReplyTo = ids }
func (c *Composer) SetReferences(ids []string)   { c.references = ids }

func (c *Composer) From() Address           { return c.from }
func (c *Composer) Recipients() []Recipient { return c.recipients }
func (c *Composer) Subject() string         { return c.subject }
func (c *Composer) Text() string            { return c.text }

// SetTimestamp pins the Date header. With a zero time the moment of the
// first serialization is used instead.
func (c *Composer) SetTimestamp(t time.Time) { c.timestamp = t }

func (c *Composer) sendTimestamp() time.Time {
	if c.timestamp.IsZero() {
		return c.now()
	}
	return c.timestamp
}

// SetPreloadEnabled makes future attachment adds pull remote content into
// the local cache right away, trading bandwidth for a snappy send later.
func (c *Composer) SetPreloadEnabled(enabled bool) { c.preload = enabled }

// SetReportVersions chooses between the full User-Agent header and a bare
// product name.
func (c *Composer) SetReportVersions(enabled bool) { c.reportVersions = enabled }

// SetReplyingTo records which message this one answers. The caller is
// expected to fill In-Reply-To and References alongside.
func (c *Composer) SetReplyingTo(ref mailstore.MessageRef) { c.replyingTo = &ref }

// ReplyingTo reports the replied-to message, if any.
func (c *Composer) ReplyingTo() (mailstore.MessageRef, bool) {
	if c.replyingTo == nil {
		return mailstore.MessageRef{}, false
	}
	return *c.replyingTo, true
}

// PrepareForwarding records the forwarded message and attaches it.
func (c *Composer) PrepareForwarding(ref mailstore.MessageRef, mode ForwardMode) error {
	switch mode {
	case ForwardAsAttachment:
		msg, err := attach.NewMessage(c.store, ref)
		if err != nil {
			return err
		}
		msg.SetDispositionMode(attach.DispositionInline)
		c.appendAttachments([]attach.Attachment{msg})
	default:
		return fmt.Errorf("unsupported forward mode %d", int(mode))
	}
	c.forwarding = &ref
	return nil
}

// Forwarding reports the forwarded message, if any.
func (c *Composer) Forwarding() (mailstore.MessageRef, bool) {
	if c.forwarding == nil {
		return mailstore.MessageRef{}, false
	}
	return *c.forwarding, true
}

func (c *Composer) AttachmentCount() int { return len(c.attachments) }

// AttachmentAt returns the attachment at index, or nil when out of range.
func (c *Composer) AttachmentAt(index int) attach.Attachment {
	if index < 0 || index >= len(c.attachments) {
		return nil
	}
	return c.attachments[index]
}

// appendAttachments installs items at the end of the list as one structural
// change.
func (c *Composer) appendAttachments(items []attach.Attachment) {
	if len(items) == 0 {
		return
	}
	first := len(c.attachments)
	for _, item := range items {
		if c.preload {
			item.Preload()
		}
		c.attachments = append(c.attachments, item)
	}
	if c.observer != nil {
		c.observer.AttachmentsAdded(first, len(c.attachments)-1)
	}
}

// AddFileAttachment attaches a local file. It fails when the file cannot be
// read right now; a draft should not accumulate attachments that are known
// to be dead on arrival.
func (c *Composer) AddFileAttachment(path string) error {
	f := attach.NewFile(path)
	if !f.IsAvailableLocally() {
		return fmt.Errorf("file %q is not readable", path)
	}
	c.appendAttachments([]attach.Attachment{f})
	return nil
}

// AddMessageAttachment attaches a stored message as message/rfc822.
func (c *Composer) AddMessageAttachment(ref mailstore.MessageRef) error {
	msg, err := attach.NewMessage(c.store, ref)
	if err != nil {
		return err
	}
	c.appendAttachments([]attach.Attachment{msg})
	return nil
}

// AddPartAttachment attaches one body part of a stored message.
func (c *Composer) AddPartAttachment(ref mailstore.PartRef) error {
	part, err := attach.NewPart(c.store, ref)
	if err != nil {
		return err
	}
	c.appendAttachments([]attach.Attachment{part})
	return nil
}

// RemoveAttachment deletes the attachment at index. Out-of-range positions
// are ignored.
func (c *Composer) RemoveAttachment(index int) {
	if index < 0 || index >= len(c.attachments) {
		return
	}
	c.attachments = append(c.attachments[:index], c.attachments[index+1:]...)
	if c.observer != nil {
		c.observer.AttachmentRemoved(index)
	}
}

// MoveAttachment moves the attachment at from to position to, shifting the
// items in between. It reports whether anything moved.
func (c *Composer) MoveAttachment(from, to int) bool {
	n := len(c.attachments)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return false
	}
	item := c.attachments[from]
	rest := append(c.attachments[:from], c.attachments[from+1:]...)
	rest = append(rest, nil)
	copy(rest[to+1:], rest[to:])
	rest[to] = item
	c.attachments = rest
	if c.observer != nil {
		c.observer.AttachmentMoved(from, to)
	}
	return true
}

// SetAttachmentCaption renames the attachment at index. The observer hears
// about it only when the caption actually changed.
func (c *Composer) SetAttachmentCaption(index int, caption string) bool {
	if index < 0 || index >= len(c.attachments) {
		return false
	}
	if !c.attachments[index].SetCaption(caption) {
		return false
	}
	if c.observer != nil {
		c.observer.AttachmentChanged(index)
	}
	return true
}

// SetAttachmentDisposition switches the attachment at index between
// attachment and inline presentation.
func (c *Composer) SetAttachmentDisposition(index int, mode attach.Disposition) bool {
	if index < 0 || index >= len(c.attachments) {
		return false
	}
	if !c.attachments[index].SetDispositionMode(mode) {
		return false
	}
	if c.observer != nil {
		c.observer.AttachmentChanged(index)
	}
	return true
}

// DropMIMEData feeds one drag-and-drop payload into the session. The format
// tag is chosen by the transport; the dragdrop package defines the wire
// forms. A failed drop leaves the session untouched.
func (c *Composer) DropMIMEData(format string, data []byte) error {
	switch format {
	case dragdrop.FormatAttachmentList:
		items, err := dragdrop.DecodeAttachmentList(c.store, data)
		if err != nil {
			log.Printf("compose: rejecting %s drop: %v", format, err)
			return err
		}
		c.appendAttachments(items)
		return nil
	case dragdrop.FormatMessageList:
		items, err := dragdrop.DecodeMessageList(c.store, data)
		if err != nil {
			log.Printf("compose: rejecting %s drop: %v", format, err)
			return err
		}
		c.appendAttachments(items)
		return nil
	case dragdrop.FormatImapPart:
		part, err := dragdrop.DecodePartReference(c.store, data)
		if err != nil {
			log.Printf("compose: rejecting %s drop: %v", format, err)
			return err
		}
		c.appendAttachments([]attach.Attachment{part})
		return nil
	case dragdrop.FormatURIList:
		return c.dropFileURLs(data)
	default:
		return fmt.Errorf("unsupported drop format %q", format)
	}
}

func (c *Composer) dropFileURLs(data []byte) error {
	added := 0
	for _, path := range dragdrop.ParseURIList(data) {
		if err := c.AddFileAttachment(path); err != nil {
			log.Printf("compose: skipping dropped file: %v", err)
			continue
		}
		added++
	}
	if added == 0 {
		return errors.New("drop contained no readable local files")
	}
	return nil
}

// IsReadyForSerialization reports whether every attachment can stream its
// bytes right now.
func (c *Composer) IsReadyForSerialization() bool {
	for _, a := range c.attachments {
		if !a.IsAvailableLocally() {
			return false
		}
	}
	return true
}

// EnvelopeSender is the MAIL FROM address for the submission layer.
func (c *Composer) EnvelopeSender() string { return c.from.SMTPMailbox() }

// EnvelopeRecipients lists every To, Cc and Bcc mailbox in order for the
// RCPT TO commands. Bcc recipients appear here even though no header names
// them.
func (c *Composer) EnvelopeRecipients() []string {
	out := make([]string, 0, len(c.recipients))
	for _, r := range c.recipients {
		out = append(out, r.Address.SMTPMailbox())
	}
	return out
}
