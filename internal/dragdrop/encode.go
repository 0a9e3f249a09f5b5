package dragdrop

import (
	"fmt"

	"github.com/honzito/trojita/internal/attach"
	"github.com/honzito/trojita/internal/mailstore"
)

// EncodeAttachmentList renders the mixed-list wire form of the given
// attachments. A referenced message is written with a single-element UID
// list, which is exactly what DecodeAttachmentList demands back.
func EncodeAttachmentList(items []attach.Attachment) []byte {
	w := &writer{}
	w.i32(int32(len(items)))
	for _, item := range items {
		switch a := item.(type) {
		case *attach.Message:
			ref := a.Ref()
			w.i32(kindMessage)
			w.str(ref.Mailbox)
			w.u32(ref.UIDValidity)
			w.uidList([]uint32{ref.UID})
		case *attach.Part:
			ref := a.Ref()
			w.i32(kindPart)
			w.str(ref.Message.Mailbox)
			w.u32(ref.Message.UIDValidity)
			w.u32(ref.Message.UID)
			w.bytes([]byte(ref.Section))
		case *attach.File:
			w.i32(kindFile)
			w.str(a.Path())
		default:
			panic(fmt.Sprintf("unhandled attachment type %T", item))
		}
	}
	return w.buf
}

// EncodeMessageList renders the standalone message-list wire form: one
// mailbox generation and any number of UIDs.
func EncodeMessageList(mailbox string, uidValidity uint32, uids []uint32) []byte {
	w := &writer{}
	w.str(mailbox)
	w.u32(uidValidity)
	w.uidList(uids)
	return w.buf
}

// EncodePartReference renders the standalone part-reference wire form.
func EncodePartReference(ref mailstore.PartRef) []byte {
	w := &writer{}
	w.str(ref.Message.Mailbox)
	w.u32(ref.Message.UIDValidity)
	w.u32(ref.Message.UID)
	w.bytes([]byte(ref.Section))
	return w.buf
}
