package dragdrop

import (
	"fmt"

	"github.com/honzito/trojita/internal/attach"
	"github.com/honzito/trojita/internal/mailstore"
)

// DecodeAttachmentList parses a mixed attachment list. On any failure it
// returns nil and the first error; items decoded before the failure are
// discarded, never installed anywhere.
func DecodeAttachmentList(store mailstore.Store, data []byte) ([]attach.Attachment, error) {
	r := &reader{buf: data}
	count, err := r.i32()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}

	var items []attach.Attachment
	for i := int32(0); i < count; i++ {
		kind, err := r.i32()
		if err != nil {
			return nil, err
		}

		switch kind {
		case kindMessage:
			mailbox, err := r.str()
			if err != nil {
				return nil, err
			}
			uidValidity, err := r.u32()
			if err != nil {
				return nil, err
			}
			uids, err := r.uidList()
			if err != nil {
				return nil, err
			}
			if err := validateMessageDrop(store, mailbox, uidValidity, uids); err != nil {
				return nil, err
			}
			// The mixed list carries a UID list for symmetry with the
			// standalone message-list format, but here it must hold exactly
			// one id.
			if len(uids) != 1 {
				return nil, fmt.Errorf("%w: a message inside a mixed list must carry exactly one UID, got %d", ErrMalformedSequenceIDs, len(uids))
			}
			msg, err := attach.NewMessage(store, mailstore.MessageRef{Mailbox: mailbox, UIDValidity: uidValidity, UID: uids[0]})
			if err != nil {
				return nil, err
			}
			items = append(items, msg)

		case kindPart:
			mailbox, err := r.str()
			if err != nil {
				return nil, err
			}
			uidValidity, err := r.u32()
			if err != nil {
				return nil, err
			}
			uid, err := r.u32()
			if err != nil {
				return nil, err
			}
			locator, err := r.bytes()
			if err != nil {
				return nil, err
			}
			if err := validatePartDrop(store, mailbox, uidValidity, uid, locator); err != nil {
				return nil, err
			}
			part, err := attach.NewPart(store, mailstore.PartRef{
				Message: mailstore.MessageRef{Mailbox: mailbox, UIDValidity: uidValidity, UID: uid},
				Section: string(locator),
			})
			if err != nil {
				return nil, err
			}
			items = append(items, part)

		case kindFile:
			path, err := r.str()
			if err != nil {
				return nil, err
			}
			items = append(items, attach.NewFile(path))

		default:
			return nil, fmt.Errorf("%w: tag %d", ErrUnknownKind, kind)
		}
	}

	if err := expectEnd(r); err != nil {
		return nil, err
	}
	return items, nil
}

// DecodeMessageList parses the standalone message-list form. Every UID in it
// becomes a separate attachment defaulted to inline disposition.
func DecodeMessageList(store mailstore.Store, data []byte) ([]attach.Attachment, error) {
	r := &reader{buf: data}
	mailbox, err := r.str()
	if err != nil {
		return nil, err
	}
	uidValidity, err := r.u32()
	if err != nil {
		return nil, err
	}
	uids, err := r.uidList()
	if err != nil {
		return nil, err
	}
	if err := validateMessageDrop(store, mailbox, uidValidity, uids); err != nil {
		return nil, err
	}
	if err := expectEnd(r); err != nil {
		return nil, err
	}

	items := make([]attach.Attachment, 0, len(uids))
	for _, uid := range uids {
		msg, err := attach.NewMessage(store, mailstore.MessageRef{Mailbox: mailbox, UIDValidity: uidValidity, UID: uid})
		if err != nil {
			return nil, err
		}
		msg.SetDispositionMode(attach.DispositionInline)
		items = append(items, msg)
	}
	return items, nil
}

// DecodePartReference parses the standalone part-reference form.
func DecodePartReference(store mailstore.Store, data []byte) (*attach.Part, error) {
	r := &reader{buf: data}
	mailbox, err := r.str()
	if err != nil {
		return nil, err
	}
	uidValidity, err := r.u32()
	if err != nil {
		return nil, err
	}
	uid, err := r.u32()
	if err != nil {
		return nil, err
	}
	locator, err := r.bytes()
	if err != nil {
		return nil, err
	}
	if err := validatePartDrop(store, mailbox, uidValidity, uid, locator); err != nil {
		return nil, err
	}
	if err := expectEnd(r); err != nil {
		return nil, err
	}
	return attach.NewPart(store, mailstore.PartRef{
		Message: mailstore.MessageRef{Mailbox: mailbox, UIDValidity: uidValidity, UID: uid},
		Section: string(locator),
	})
}

func validateMessageDrop(store mailstore.Store, mailbox string, uidValidity uint32, uids []uint32) error {
	if _, err := store.FindMailbox(mailbox); err != nil {
		return fmt.Errorf("%w: %q", ErrMailboxNotFound, mailbox)
	}
	if uidValidity == 0 {
		return ErrInvalidGenerationToken
	}
	if len(uids) == 0 {
		return fmt.Errorf("%w: no UIDs passed", ErrMalformedSequenceIDs)
	}
	return nil
}

func validatePartDrop(store mailstore.Store, mailbox string, uidValidity, uid uint32, locator []byte) error {
	if _, err := store.FindMailbox(mailbox); err != nil {
		return fmt.Errorf("%w: %q", ErrMailboxNotFound, mailbox)
	}
	if uidValidity == 0 {
		return ErrInvalidGenerationToken
	}
	if uid == 0 || len(locator) == 0 {
		return ErrInvalidPartLocator
	}
	return nil
}

func expectEnd(r *reader) error {
	if n := r.remaining(); n > 0 {
		return fmt.Errorf("%w: %d bytes", ErrTrailingData, n)
	}
	return nil
}
