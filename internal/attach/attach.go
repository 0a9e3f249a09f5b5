// Package attach models what a draft message can carry: local files,
// whole messages referenced on the IMAP server, and single MIME parts of
// such messages. The set of kinds is closed; operations over attachments
// type-switch over the three concrete types.
package attach

import (
	"io"
	"mime"
)

// Disposition selects the Content-Disposition of a generated MIME part.
type Disposition int

const (
	DispositionAttachment Disposition = iota
	DispositionInline
)

func (d Disposition) String() string {
	if d == DispositionInline {
		return "inline"
	}
	return "attachment"
}

// Encoding is the Content-Transfer-Encoding a serializer should apply to an
// attachment's body.
type Encoding int

const (
	EncodingBase64 Encoding = iota
	EncodingSevenBit
	EncodingEightBit
	EncodingBinary
	EncodingQuotedPrintable
)

func (e Encoding) String() string {
	switch e {
	case EncodingSevenBit:
		return "7bit"
	case EncodingEightBit:
		return "8bit"
	case EncodingBinary:
		return "binary"
	case EncodingQuotedPrintable:
		return "quoted-printable"
	default:
		return "base64"
	}
}

// Attachment is one item of a draft's attachment list. The three
// implementations are File, Message and Part; the interface cannot be
// implemented outside this package.
//
// Identity is fixed at construction. Only the caption (for File), the
// disposition mode and the resolution state change afterwards.
type Attachment interface {
	// MIMEType is the Content-Type of the generated part, without parameters.
	MIMEType() string
	// Caption is the user-visible display name.
	Caption() string
	// Tooltip is a longer description for presentation layers.
	Tooltip() string
	// DispositionHeader renders the complete Content-Disposition header line
	// including the trailing CRLF.
	DispositionHeader() []byte
	DispositionMode() Disposition
	// SetDispositionMode reports whether the value actually changed.
	SetDispositionMode(Disposition) bool
	// SetCaption reports whether the value actually changed. Only File
	// captions are mutable; referenced content derives its caption.
	SetCaption(string) bool
	SuggestedEncoding() Encoding
	// IsAvailableLocally reports whether Open can currently succeed without
	// further I/O. It must never block.
	IsAvailableLocally() bool
	// Open yields the attachment's content. For referenced parts this is the
	// decoded form; SuggestedEncoding tells the serializer how to re-encode
	// it.
	Open() (io.ReadCloser, error)
	// RemoteReference is an RFC 5092 locator for server-side concatenation,
	// or "" when the content can only be streamed by the client.
	RemoteReference() string
	// Preload may trigger a background fetch of remote content. Best effort;
	// callers re-check IsAvailableLocally.
	Preload()

	isAttachment()
}

// dispositionHeader renders the shared Content-Disposition shape. A non-empty
// filename is attached as an RFC 2231 parameter.
func dispositionHeader(mode Disposition, filename string) []byte {
	value := mode.String()
	if filename != "" {
		value = mime.FormatMediaType(value, map[string]string{"filename": filename})
	}
	return []byte("Content-Disposition: " + value + "\r\n")
}
