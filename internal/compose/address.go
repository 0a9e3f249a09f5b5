package compose

import (
	"fmt"
	"net/mail"
	"strings"
)

// RecipientKind says which header, if any, names a recipient.
type RecipientKind int

const (
	RecipientTo RecipientKind = iota
	RecipientCc
	RecipientBcc
)

func (k RecipientKind) String() string {
	switch k {
	case RecipientTo:
		return "To"
	case RecipientCc:
		return "Cc"
	case RecipientBcc:
		return "Bcc"
	default:
		return fmt.Sprintf("RecipientKind(%d)", int(k))
	}
}

// Address is one mailbox with an optional display name.
type Address struct {
	Name    string
	Mailbox string
	Host    string
}

// Recipient pairs an address with the header it belongs to.
type Recipient struct {
	Kind    RecipientKind
	Address Address
}

// ParseAddress accepts "Name <box@host>" or a bare addr-spec.
func ParseAddress(s string) (Address, error) {
	parsed, err := mail.ParseAddress(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	at := strings.LastIndex(parsed.Address, "@")
	if at < 0 {
		return Address{Name: parsed.Name, Mailbox: parsed.Address}, nil
	}
	return Address{
		Name:    parsed.Name,
		Mailbox: parsed.Address[:at],
		Host:    parsed.Address[at+1:],
	}, nil
}

// SMTPMailbox is the bare addr-spec used on the submission envelope.
func (a Address) SMTPMailbox() string {
	return a.Mailbox + "@" + a.Host
}

// MailHeader renders the address for a message header, encoding the display
// name as an atom sequence, a quoted string or RFC 2047 words as needed.
func (a Address) MailHeader() string {
	spec := "<" + a.Mailbox + "@" + a.Host + ">"
	if a.Name == "" {
		return spec
	}
	return encodePhrase(a.Name) + " " + spec
}

func encodePhrase(name string) string {
	if isAtomPhrase(name) {
		return name
	}
	if isPrintableASCII(name) {
		return quoteString(name)
	}
	return strings.Join(encodedWords(name), " ")
}

// isAtomPhrase reports whether name is a space-separated run of RFC 5322
// atoms and can go on the wire verbatim.
func isAtomPhrase(name string) bool {
	if name == "" || name[0] == ' ' || name[len(name)-1] == ' ' {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !isAtext(name[i]) && name[i] != ' ' {
			return false
		}
	}
	return true
}

func isAtext(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '/', '=', '?', '^', '_', '`', '{', '|', '}', '~':
		return true
	}
	return false
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}
