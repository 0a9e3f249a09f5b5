// Package dragdrop implements the binary wire format used to carry
// attachment references between composer instances, typically through a
// drag-and-drop transfer. The payload travels under one of three format tags;
// the tag is chosen by the transport, this package only encodes and decodes
// the bytes for a given format.
//
// Decoding treats the input as untrusted: short reads, unknown tags, bogus
// counts and dangling references all abort the whole decode, and no partial
// attachment list ever escapes.
package dragdrop

import "errors"

// Format tags understood by the composer's drop handler.
const (
	// FormatAttachmentList is a mixed list of file, message and part
	// references.
	FormatAttachmentList = "application/x-trojita-attachments-list"
	// FormatMessageList is one mailbox generation plus any number of message
	// UIDs, each of which becomes a separate inline attachment.
	FormatMessageList = "application/x-trojita-message-list"
	// FormatImapPart is a single message part reference.
	FormatImapPart = "application/x-trojita-imap-part"
	// FormatURIList is the standard text/uri-list drag payload. It is not a
	// wire-codec format; local file URLs in it become file attachments.
	FormatURIList = "text/uri-list"
)

// Kind tags inside FormatAttachmentList payloads.
const (
	kindMessage int32 = iota
	kindPart
	kindFile
)

var (
	ErrTruncatedStream        = errors.New("truncated stream")
	ErrInvalidCount           = errors.New("invalid number of items")
	ErrUnknownKind            = errors.New("unknown attachment kind")
	ErrMailboxNotFound        = errors.New("mailbox not found")
	ErrInvalidGenerationToken = errors.New("invalid UIDVALIDITY")
	ErrMalformedSequenceIDs   = errors.New("malformed UID list")
	ErrInvalidPartLocator     = errors.New("invalid part locator")
	ErrTrailingData           = errors.New("trailing data after the last item")
	ErrStreamCorrupt          = errors.New("corrupt stream")
)
