package imapstore

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime/quotedprintable"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"

	"github.com/honzito/trojita/internal/mailstore"
)

// sectionPath parses a dotted section locator like "2.1" into the numeric
// path an IMAP BODY[] fetch wants.
func sectionPath(section string) ([]int, error) {
	items := strings.Split(section, ".")
	path := make([]int, 0, len(items))
	for _, item := range items {
		n, err := strconv.Atoi(item)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("bad section locator %q", section)
		}
		path = append(path, n)
	}
	return path, nil
}

// partStructure walks a BODYSTRUCTURE tree down a dotted section locator.
// Inside a message/rfc822 part the numbering continues with the embedded
// message's parts, and a non-multipart body is addressable as part 1.
func partStructure(root *imap.BodyStructure, section string) (*imap.BodyStructure, error) {
	path, err := sectionPath(section)
	if err != nil {
		return nil, err
	}
	cur := root
	for _, n := range path {
		target := cur
		if len(target.Parts) == 0 && target.BodyStructure != nil {
			target = target.BodyStructure
		}
		switch {
		case len(target.Parts) >= n:
			cur = target.Parts[n-1]
		case n == 1 && len(target.Parts) == 0:
			cur = target
		default:
			return nil, fmt.Errorf("no part %d under %s/%s", n, target.MIMEType, target.MIMESubType)
		}
	}
	return cur, nil
}

func partInfo(bs *imap.BodyStructure) mailstore.PartInfo {
	return mailstore.PartInfo{
		MIMEType: strings.ToLower(bs.MIMEType + "/" + bs.MIMESubType),
		FileName: partFilename(bs),
		Encoding: strings.ToLower(bs.Encoding),
		Size:     bs.Size,
	}
}

// partFilename prefers the Content-Disposition filename and falls back to
// the legacy Content-Type name parameter.
func partFilename(bs *imap.BodyStructure) string {
	for key, value := range bs.DispositionParams {
		if strings.EqualFold(key, "filename") {
			return value
		}
	}
	for key, value := range bs.Params {
		if strings.EqualFold(key, "name") {
			return value
		}
	}
	return ""
}

// decodeTransfer undoes a content transfer encoding. Unknown labels pass the
// bytes through; 7bit, 8bit and binary content is already literal.
func decodeTransfer(raw []byte, encoding string) ([]byte, error) {
	switch strings.ToLower(encoding) {
	case "base64":
		decoded, err := io.ReadAll(base64.NewDecoder(base64.StdEncoding, bytes.NewReader(raw)))
		if err != nil {
			return nil, fmt.Errorf("base64 content: %w", err)
		}
		return decoded, nil
	case "quoted-printable":
		decoded, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(raw)))
		if err != nil {
			return nil, fmt.Errorf("quoted-printable content: %w", err)
		}
		return decoded, nil
	default:
		return raw, nil
	}
}
