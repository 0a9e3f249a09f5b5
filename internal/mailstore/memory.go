package mailstore

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// Memory is an in-process Store. Content added to it starts out local;
// SetMessageLocal and SetPartLocal can mark it remote-only, in which case a
// Preload call flips it back, standing in for a completed fetch.
type Memory struct {
	mu        sync.Mutex
	user      string
	host      string
	mailboxes map[string]*memoryMailbox
}

type memoryMailbox struct {
	uidValidity uint32
	messages    map[uint32]*memoryMessage
}

type memoryMessage struct {
	subject string
	raw     []byte
	local   bool
	parts   map[string]*memoryPart
}

type memoryPart struct {
	info    PartInfo
	content []byte
	local   bool
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{mailboxes: make(map[string]*memoryMailbox)}
}

// EnableURLs gives the store an account identity so that MessageURL and
// PartURL produce RFC 5092 locators. Without it both return "".
func (m *Memory) EnableURLs(user, host string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user, m.host = user, host
}

func (m *Memory) AddMailbox(name string, uidValidity uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mailboxes[name] = &memoryMailbox{
		uidValidity: uidValidity,
		messages:    make(map[uint32]*memoryMessage),
	}
}

func (m *Memory) AddMessage(mailbox string, uid uint32, subject string, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mbox, ok := m.mailboxes[mailbox]
	if !ok {
		return fmt.Errorf("no such mailbox %q", mailbox)
	}
	mbox.messages[uid] = &memoryMessage{
		subject: subject,
		raw:     raw,
		local:   true,
		parts:   make(map[string]*memoryPart),
	}
	return nil
}

// AddPart attaches one body section to an already added message. Content is
// the decoded form; info.Encoding names the encoding the server stores it in.
func (m *Memory) AddPart(mailbox string, uid uint32, section string, info PartInfo, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, err := m.message(mailbox, uid)
	if err != nil {
		return err
	}
	if info.Size == 0 {
		info.Size = uint32(len(content))
	}
	msg.parts[section] = &memoryPart{info: info, content: content, local: true}
	return nil
}

func (m *Memory) SetMessageLocal(mailbox string, uid uint32, local bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, err := m.message(mailbox, uid)
	if err != nil {
		return err
	}
	msg.local = local
	return nil
}

func (m *Memory) SetPartLocal(mailbox string, uid uint32, section string, local bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, err := m.message(mailbox, uid)
	if err != nil {
		return err
	}
	part, ok := msg.parts[section]
	if !ok {
		return fmt.Errorf("no such part %q in message %d", section, uid)
	}
	part.local = local
	return nil
}

func (m *Memory) message(mailbox string, uid uint32) (*memoryMessage, error) {
	mbox, ok := m.mailboxes[mailbox]
	if !ok {
		return nil, fmt.Errorf("no such mailbox %q", mailbox)
	}
	msg, ok := mbox.messages[uid]
	if !ok {
		return nil, fmt.Errorf("no such message %d in %q", uid, mailbox)
	}
	return msg, nil
}

// resolve checks the full reference chain, including the UIDVALIDITY
// generation match.
func (m *Memory) resolve(ref MessageRef) (*memoryMessage, error) {
	mbox, ok := m.mailboxes[ref.Mailbox]
	if !ok || mbox.uidValidity != ref.UIDValidity {
		return nil, ErrUnknownReference
	}
	msg, ok := mbox.messages[ref.UID]
	if !ok {
		return nil, ErrUnknownReference
	}
	return msg, nil
}

func (m *Memory) resolvePart(ref PartRef) (*memoryPart, error) {
	msg, err := m.resolve(ref.Message)
	if err != nil {
		return nil, err
	}
	part, ok := msg.parts[ref.Section]
	if !ok {
		return nil, ErrUnknownReference
	}
	return part, nil
}

func (m *Memory) FindMailbox(name string) (Mailbox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mbox, ok := m.mailboxes[name]
	if !ok {
		return Mailbox{}, ErrUnknownReference
	}
	return Mailbox{Name: name, UIDValidity: mbox.uidValidity}, nil
}

func (m *Memory) StatMessage(ref MessageRef) (MessageInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, err := m.resolve(ref)
	if err != nil {
		return MessageInfo{}, err
	}
	return MessageInfo{Subject: msg.subject, Size: uint32(len(msg.raw))}, nil
}

func (m *Memory) StatPart(ref PartRef) (PartInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	part, err := m.resolvePart(ref)
	if err != nil {
		return PartInfo{}, err
	}
	return part.info, nil
}

func (m *Memory) HasMessage(ref MessageRef) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, err := m.resolve(ref)
	return err == nil && msg.local
}

func (m *Memory) HasPart(ref PartRef) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	part, err := m.resolvePart(ref)
	return err == nil && part.local
}

func (m *Memory) OpenMessage(ref MessageRef) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, err := m.resolve(ref)
	if err != nil {
		return nil, err
	}
	if !msg.local {
		return nil, ErrContentUnavailable
	}
	return io.NopCloser(bytes.NewReader(msg.raw)), nil
}

func (m *Memory) OpenPart(ref PartRef) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	part, err := m.resolvePart(ref)
	if err != nil {
		return nil, err
	}
	if !part.local {
		return nil, ErrContentUnavailable
	}
	return io.NopCloser(bytes.NewReader(part.content)), nil
}

// PreloadMessage marks the content local, standing in for an instantly
// completed background fetch. Unresolvable references are ignored.
func (m *Memory) PreloadMessage(ref MessageRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, err := m.resolve(ref); err == nil {
		msg.local = true
	}
}

func (m *Memory) PreloadPart(ref PartRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if part, err := m.resolvePart(ref); err == nil {
		part.local = true
	}
}

func (m *Memory) MessageURL(ref MessageRef) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.host == "" {
		return ""
	}
	if _, err := m.resolve(ref); err != nil {
		return ""
	}
	return MessageURL(m.user, m.host, ref)
}

func (m *Memory) PartURL(ref PartRef) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.host == "" {
		return ""
	}
	if _, err := m.resolvePart(ref); err != nil {
		return ""
	}
	return PartURL(m.user, m.host, ref)
}
