package compose

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/quotedprintable"
	"strings"
	"time"

	"github.com/honzito/trojita/internal/attach"
	"github.com/honzito/trojita/internal/version"
)

// AttachmentUnavailableError aborts serialization when an attachment cannot
// deliver its bytes. The caption names the offender for the user.
type AttachmentUnavailableError struct {
	Caption string
	Err     error
}

func (e *AttachmentUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("attachment %q is not available: %v", e.Caption, e.Err)
	}
	return fmt.Sprintf("attachment %q is not available", e.Caption)
}

func (e *AttachmentUnavailableError) Unwrap() error { return e.Err }

// msgWriter latches the first write error so the serializer can stream
// without checking after every header line.
type msgWriter struct {
	w   io.Writer
	err error
}

func (mw *msgWriter) write(p []byte) {
	if mw.err != nil {
		return
	}
	_, mw.err = mw.w.Write(p)
}

func (mw *msgWriter) writeString(s string) {
	if mw.err != nil {
		return
	}
	_, mw.err = io.WriteString(mw.w, s)
}

// WriteRaw streams the complete RFC 5322 message to w. When it fails,
// whatever was already written is not a valid message and must be thrown
// away. Repeated calls on the same session produce identical bytes as long
// as the inputs are unchanged.
func (c *Composer) WriteRaw(w io.Writer) error {
	mw := &msgWriter{w: w}
	c.writeCommonMessageBeginning(mw)
	if len(c.attachments) > 0 {
		for _, a := range c.attachments {
			if err := c.writeAttachmentHeader(mw, a); err != nil {
				return err
			}
			if err := c.writeAttachmentBody(mw, a); err != nil {
				return err
			}
		}
		mw.writeString("\r\n--" + c.boundary() + "--\r\n")
	}
	return mw.err
}

// Catenate builds the message as fragments for a server-side concatenation
// upload. Text fragments carry the exact bytes WriteRaw would produce around
// each spliced reference, so a server resolving the URLs reconstructs the
// raw message verbatim.
func (c *Composer) Catenate() ([]Fragment, error) {
	fb := &fragmentBuffer{}
	mw := &msgWriter{w: fb}
	c.writeCommonMessageBeginning(mw)
	if len(c.attachments) > 0 {
		for _, a := range c.attachments {
			if err := c.writeAttachmentHeader(mw, a); err != nil {
				return nil, err
			}
			if url := a.RemoteReference(); url != "" {
				fb.addURL(url)
				continue
			}
			if err := c.writeAttachmentBody(mw, a); err != nil {
				return nil, err
			}
		}
		mw.writeString("\r\n--" + c.boundary() + "--\r\n")
	}
	if mw.err != nil {
		return nil, mw.err
	}
	return fb.frags, nil
}

// writeCommonMessageBeginning emits everything up to and including the main
// body part: the header block, the multipart preamble when attachments
// exist, and the quoted-printable flowed text.
func (c *Composer) writeCommonMessageBeginning(mw *msgWriter) {
	mw.writeString("From: " + c.from.MailHeader() + "\r\n")

	var to, cc []string
	for _, r := range c.recipients {
		switch r.Kind {
		case RecipientTo:
			to = append(to, r.Address.MailHeader())
		case RecipientCc:
			cc = append(cc, r.Address.MailHeader())
		case RecipientBcc:
			// Bcc recipients show up on the envelope only.
		}
	}
	writeRecipientHeader(mw, "To", to)
	writeRecipientHeader(mw, "Cc", cc)

	mw.writeString(encodeHeaderField("Subject: "+c.subject) + "\r\n")
	mw.writeString("Date: " + c.sendTimestamp().Format(time.RFC1123Z) + "\r\n")
	mw.writeString("MIME-Version: 1.0\r\n")
	mw.writeString("Message-ID: <" + c.messageID() + ">\r\n")
	writeMsgIDHeader(mw, "In-Reply-To", c.inReplyTo)
	writeMsgIDHeader(mw, "References", c.references)
	if c.organization != "" {
		mw.writeString(encodeHeaderField("Organization: "+c.organization) + "\r\n")
	}
	mw.writeString("User-Agent: " + version.UserAgent(c.reportVersions) + "\r\n")

	if len(c.attachments) > 0 {
		mw.writeString("Content-Type: multipart/mixed;\r\n\tboundary=\"" + c.boundary() + "\"\r\n" +
			"\r\nThis is a multipart/mixed message in MIME format.\r\n" +
			"\r\n--" + c.boundary() + "\r\n")
	}

	mw.writeString("Content-Type: text/plain; charset=utf-8; format=flowed\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n")
	mw.write(encodeQuotedPrintable([]byte(wrapFormatFlowed(c.text))))
}

func writeRecipientHeader(mw *msgWriter, name string, addresses []string) {
	if len(addresses) == 0 {
		return
	}
	mw.writeString(name + ": " + strings.Join(addresses, ",\r\n ") + "\r\n")
}

// writeMsgIDHeader folds a message-id list so no line exceeds the
// recommended length; the separating space and angle brackets cost three
// characters per id.
func writeMsgIDHeader(mw *msgWriter, name string, ids []string) {
	if len(ids) == 0 {
		return
	}
	mw.writeString(name + ":")
	charCount := len(name) + 1
	for i, id := range ids {
		if i != 0 && charCount+len(id)+3 > maxHeaderLineLength {
			mw.writeString("\r\n")
			charCount = 0
		}
		mw.writeString(" <" + id + ">")
		charCount += len(id) + 3
	}
	mw.writeString("\r\n")
}

// writeAttachmentHeader emits the boundary line and the per-part headers.
// An attachment with neither local content nor a remote reference cannot be
// serialized in any mode.
func (c *Composer) writeAttachmentHeader(mw *msgWriter, a attach.Attachment) error {
	if !a.IsAvailableLocally() && a.RemoteReference() == "" {
		return &AttachmentUnavailableError{Caption: a.Caption()}
	}
	mw.writeString("\r\n--" + c.boundary() + "\r\n" +
		"Content-Type: " + a.MIMEType() + "\r\n")
	mw.write(a.DispositionHeader())
	mw.writeString("Content-Transfer-Encoding: " + a.SuggestedEncoding().String() + "\r\n")
	mw.writeString("\r\n")
	return nil
}

// writeAttachmentBody streams the attachment content in its suggested
// transfer encoding. It needs the bytes locally; catenate skips this for
// parts the server can splice in itself.
func (c *Composer) writeAttachmentBody(mw *msgWriter, a attach.Attachment) error {
	if !a.IsAvailableLocally() {
		return &AttachmentUnavailableError{Caption: a.Caption()}
	}
	rc, err := a.Open()
	if err != nil {
		return &AttachmentUnavailableError{Caption: a.Caption(), Err: err}
	}
	defer rc.Close()

	switch a.SuggestedEncoding() {
	case attach.EncodingBase64:
		if err := writeBase64Lines(mw, rc); err != nil {
			return &AttachmentUnavailableError{Caption: a.Caption(), Err: err}
		}
	case attach.EncodingQuotedPrintable:
		data, err := io.ReadAll(rc)
		if err != nil {
			return &AttachmentUnavailableError{Caption: a.Caption(), Err: err}
		}
		mw.write(encodeQuotedPrintable(data))
	default:
		data, err := io.ReadAll(rc)
		if err != nil {
			return &AttachmentUnavailableError{Caption: a.Caption(), Err: err}
		}
		mw.write(data)
	}
	return nil
}

// writeBase64Lines encodes the reader in chunks sized so that every output
// line is exactly 76 characters before its CRLF; the final line may be
// shorter but still ends with CRLF. An empty reader produces no lines.
func writeBase64Lines(mw *msgWriter, r io.Reader) error {
	raw := make([]byte, 76*6/8)
	line := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	for {
		n, err := io.ReadFull(r, raw)
		if n > 0 {
			m := base64.StdEncoding.EncodedLen(n)
			base64.StdEncoding.Encode(line[:m], raw[:n])
			mw.write(line[:m])
			mw.writeString("\r\n")
		}
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func encodeQuotedPrintable(data []byte) []byte {
	var buf bytes.Buffer
	qw := quotedprintable.NewWriter(&buf)
	qw.Write(data)
	qw.Close()
	return buf.Bytes()
}
