// Package imapstore resolves mail references against a live IMAP connection
// and caches fetched content so the composer can serialize without further
// network round trips.
package imapstore

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/honzito/trojita/internal/mailstore"
)

// Store is a mailstore.Store over one IMAP connection. Commands are
// serialized on connMu; availability checks and cache reads only touch
// cacheMu and never wait for the network.
type Store struct {
	connMu   sync.Mutex
	c        *client.Client
	selected string

	cacheMu      sync.Mutex
	user         string
	host         string
	messages     map[mailstore.MessageRef][]byte
	parts        map[mailstore.PartRef]partEntry
	inflightMsg  map[mailstore.MessageRef]bool
	inflightPart map[mailstore.PartRef]bool
}

type partEntry struct {
	info    mailstore.PartInfo
	content []byte
}

var _ mailstore.Store = (*Store)(nil)

// New wraps an authenticated client. The store selects mailboxes read-only
// and never mutates server state.
func New(c *client.Client) *Store {
	return &Store{
		c:            c,
		messages:     make(map[mailstore.MessageRef][]byte),
		parts:        make(map[mailstore.PartRef]partEntry),
		inflightMsg:  make(map[mailstore.MessageRef]bool),
		inflightPart: make(map[mailstore.PartRef]bool),
	}
}

// EnableURLs gives the store an account identity so that MessageURL and
// PartURL produce RFC 5092 locators. Without it both return "".
func (s *Store) EnableURLs(user, host string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.user, s.host = user, host
}

func (s *Store) FindMailbox(name string) (mailstore.Mailbox, error) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	status, err := s.c.Status(name, []imap.StatusItem{imap.StatusUidValidity})
	if err != nil {
		return mailstore.Mailbox{}, fmt.Errorf("mailbox %q: %w", name, mailstore.ErrUnknownReference)
	}
	return mailstore.Mailbox{Name: name, UIDValidity: status.UidValidity}, nil
}

// selectLocked makes sure the wanted mailbox is open. Callers hold connMu.
func (s *Store) selectLocked(mailbox string) (*imap.MailboxStatus, error) {
	if s.selected == mailbox {
		if status := s.c.Mailbox(); status != nil {
			return status, nil
		}
	}
	status, err := s.c.Select(mailbox, true)
	if err != nil {
		s.selected = ""
		return nil, fmt.Errorf("mailbox %q: %w", mailbox, mailstore.ErrUnknownReference)
	}
	s.selected = mailbox
	return status, nil
}

// openGeneration selects the mailbox and checks that the reference still
// points at the same UIDVALIDITY generation.
func (s *Store) openGeneration(ref mailstore.MessageRef) error {
	status, err := s.selectLocked(ref.Mailbox)
	if err != nil {
		return err
	}
	if status.UidValidity != ref.UIDValidity {
		return fmt.Errorf("mailbox %q generation %d superseded by %d: %w",
			ref.Mailbox, ref.UIDValidity, status.UidValidity, mailstore.ErrUnknownReference)
	}
	return nil
}

// fetchOne runs a single-UID fetch. Callers hold connMu.
func (s *Store) fetchOne(uid uint32, items []imap.FetchItem) (*imap.Message, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- s.c.UidFetch(seqSet, items, messages)
	}()

	var result *imap.Message
	for msg := range messages {
		if result == nil {
			result = msg
		}
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("uid fetch %d: %w", uid, err)
	}
	if result == nil {
		return nil, fmt.Errorf("uid %d: %w", uid, mailstore.ErrUnknownReference)
	}
	return result, nil
}

func (s *Store) StatMessage(ref mailstore.MessageRef) (mailstore.MessageInfo, error) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if err := s.openGeneration(ref); err != nil {
		return mailstore.MessageInfo{}, err
	}
	msg, err := s.fetchOne(ref.UID, []imap.FetchItem{imap.FetchEnvelope, imap.FetchRFC822Size, imap.FetchUid})
	if err != nil {
		return mailstore.MessageInfo{}, err
	}
	info := mailstore.MessageInfo{Size: msg.Size}
	if msg.Envelope != nil {
		info.Subject = msg.Envelope.Subject
	}
	return info, nil
}

func (s *Store) StatPart(ref mailstore.PartRef) (mailstore.PartInfo, error) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if err := s.openGeneration(ref.Message); err != nil {
		return mailstore.PartInfo{}, err
	}
	msg, err := s.fetchOne(ref.Message.UID, []imap.FetchItem{imap.FetchBodyStructure, imap.FetchUid})
	if err != nil {
		return mailstore.PartInfo{}, err
	}
	if msg.BodyStructure == nil {
		return mailstore.PartInfo{}, fmt.Errorf("uid %d: no body structure: %w", ref.Message.UID, mailstore.ErrUnknownReference)
	}
	bs, err := partStructure(msg.BodyStructure, ref.Section)
	if err != nil {
		return mailstore.PartInfo{}, fmt.Errorf("uid %d: %v: %w", ref.Message.UID, err, mailstore.ErrUnknownReference)
	}
	return partInfo(bs), nil
}

func (s *Store) HasMessage(ref mailstore.MessageRef) bool {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	_, ok := s.messages[ref]
	return ok
}

func (s *Store) HasPart(ref mailstore.PartRef) bool {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	_, ok := s.parts[ref]
	return ok
}

func (s *Store) OpenMessage(ref mailstore.MessageRef) (io.ReadCloser, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	raw, ok := s.messages[ref]
	if !ok {
		return nil, mailstore.ErrContentUnavailable
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (s *Store) OpenPart(ref mailstore.PartRef) (io.ReadCloser, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	entry, ok := s.parts[ref]
	if !ok {
		return nil, mailstore.ErrContentUnavailable
	}
	return io.NopCloser(bytes.NewReader(entry.content)), nil
}

// FetchMessage pulls the complete RFC 822 bytes into the cache.
func (s *Store) FetchMessage(ref mailstore.MessageRef) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if err := s.openGeneration(ref); err != nil {
		return err
	}
	section := &imap.BodySectionName{}
	msg, err := s.fetchOne(ref.UID, []imap.FetchItem{section.FetchItem(), imap.FetchUid})
	if err != nil {
		return err
	}
	body := msg.GetBody(section)
	if body == nil {
		return fmt.Errorf("uid %d: %w", ref.UID, mailstore.ErrContentUnavailable)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("uid %d: %w", ref.UID, err)
	}
	s.cacheMu.Lock()
	s.messages[ref] = raw
	s.cacheMu.Unlock()
	return nil
}

// FetchPart pulls one body section into the cache, undoing its transfer
// encoding so the cache holds the decoded content alongside the original
// encoding label.
func (s *Store) FetchPart(ref mailstore.PartRef) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if err := s.openGeneration(ref.Message); err != nil {
		return err
	}
	path, err := sectionPath(ref.Section)
	if err != nil {
		return fmt.Errorf("uid %d: %v: %w", ref.Message.UID, err, mailstore.ErrUnknownReference)
	}
	section := &imap.BodySectionName{BodyPartName: imap.BodyPartName{Path: path}}
	msg, err := s.fetchOne(ref.Message.UID, []imap.FetchItem{imap.FetchBodyStructure, section.FetchItem(), imap.FetchUid})
	if err != nil {
		return err
	}
	if msg.BodyStructure == nil {
		return fmt.Errorf("uid %d: no body structure: %w", ref.Message.UID, mailstore.ErrUnknownReference)
	}
	bs, err := partStructure(msg.BodyStructure, ref.Section)
	if err != nil {
		return fmt.Errorf("uid %d: %v: %w", ref.Message.UID, err, mailstore.ErrUnknownReference)
	}
	body := msg.GetBody(section)
	if body == nil {
		return fmt.Errorf("uid %d section %s: %w", ref.Message.UID, ref.Section, mailstore.ErrContentUnavailable)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("uid %d section %s: %w", ref.Message.UID, ref.Section, err)
	}
	decoded, err := decodeTransfer(raw, bs.Encoding)
	if err != nil {
		return fmt.Errorf("uid %d section %s: %w", ref.Message.UID, ref.Section, err)
	}
	s.cacheMu.Lock()
	s.parts[ref] = partEntry{info: partInfo(bs), content: decoded}
	s.cacheMu.Unlock()
	return nil
}

// PreloadMessage starts a background fetch unless the content is already
// cached or on its way. Failures are logged; callers re-check availability.
func (s *Store) PreloadMessage(ref mailstore.MessageRef) {
	s.cacheMu.Lock()
	if _, ok := s.messages[ref]; ok || s.inflightMsg[ref] {
		s.cacheMu.Unlock()
		return
	}
	s.inflightMsg[ref] = true
	s.cacheMu.Unlock()

	go func() {
		if err := s.FetchMessage(ref); err != nil {
			log.Printf("imapstore: preload message %d in %q: %v", ref.UID, ref.Mailbox, err)
		}
		s.cacheMu.Lock()
		delete(s.inflightMsg, ref)
		s.cacheMu.Unlock()
	}()
}

func (s *Store) PreloadPart(ref mailstore.PartRef) {
	s.cacheMu.Lock()
	if _, ok := s.parts[ref]; ok || s.inflightPart[ref] {
		s.cacheMu.Unlock()
		return
	}
	s.inflightPart[ref] = true
	s.cacheMu.Unlock()

	go func() {
		if err := s.FetchPart(ref); err != nil {
			log.Printf("imapstore: preload part %s of %d in %q: %v", ref.Section, ref.Message.UID, ref.Message.Mailbox, err)
		}
		s.cacheMu.Lock()
		delete(s.inflightPart, ref)
		s.cacheMu.Unlock()
	}()
}

// MessageURL builds the locator from the reference alone; the reference was
// validated against the server when the attachment was constructed.
func (s *Store) MessageURL(ref mailstore.MessageRef) string {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.host == "" {
		return ""
	}
	return mailstore.MessageURL(s.user, s.host, ref)
}

func (s *Store) PartURL(ref mailstore.PartRef) string {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.host == "" {
		return ""
	}
	return mailstore.PartURL(s.user, s.host, ref)
}
