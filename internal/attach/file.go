package attach

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/honzito/trojita/internal/mailstore"
)

func init() {
	// The builtin extension table lacks plain-text staples, which would
	// misclassify common attachments on hosts without a system mime database.
	for ext, typ := range map[string]string{
		".txt": "text/plain; charset=utf-8",
		".log": "text/plain; charset=utf-8",
		".md":  "text/markdown; charset=utf-8",
		".csv": "text/csv; charset=utf-8",
		".eml": "message/rfc822",
	} {
		_ = mime.AddExtensionType(ext, typ)
	}
}

// File is an attachment backed by a local filesystem path. Content is read
// lazily at serialization time; the caption doubles as the preferred file
// name and may be changed by the user.
type File struct {
	path    string
	caption string
	mode    Disposition
}

var _ Attachment = (*File)(nil)

func NewFile(path string) *File {
	return &File{path: path, caption: filepath.Base(path), mode: DispositionAttachment}
}

// Path is the filesystem path the attachment was created from.
func (f *File) Path() string { return f.path }

func (f *File) MIMEType() string {
	t := mime.TypeByExtension(filepath.Ext(f.path))
	if t == "" {
		return "application/octet-stream"
	}
	if mediaType, _, err := mime.ParseMediaType(t); err == nil {
		return mediaType
	}
	return t
}

func (f *File) Caption() string { return f.caption }

func (f *File) Tooltip() string {
	abs, err := filepath.Abs(f.path)
	if err != nil {
		return f.path
	}
	return abs
}

func (f *File) DispositionHeader() []byte {
	return dispositionHeader(f.mode, f.caption)
}

func (f *File) DispositionMode() Disposition { return f.mode }

func (f *File) SetDispositionMode(mode Disposition) bool {
	if f.mode == mode {
		return false
	}
	f.mode = mode
	return true
}

func (f *File) SetCaption(caption string) bool {
	if f.caption == caption {
		return false
	}
	f.caption = caption
	return true
}

func (f *File) SuggestedEncoding() Encoding {
	if strings.HasPrefix(f.MIMEType(), "text/") {
		return EncodingQuotedPrintable
	}
	return EncodingBase64
}

func (f *File) IsAvailableLocally() bool {
	info, err := os.Stat(f.path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	fh, err := os.Open(f.path)
	if err != nil {
		return false
	}
	_ = fh.Close()
	return true
}

func (f *File) Open() (io.ReadCloser, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mailstore.ErrContentUnavailable, err)
	}
	return fh, nil
}

func (f *File) RemoteReference() string { return "" }

func (f *File) Preload() {}

func (f *File) isAttachment() {}
