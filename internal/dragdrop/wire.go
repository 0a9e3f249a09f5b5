package dragdrop

import (
	"encoding/binary"
	"unicode/utf8"
)

// All integers on the wire are big-endian. Text fields are a uint32 byte
// length followed by that many bytes of UTF-8; byte-string fields are the
// same without the UTF-8 requirement. UID lists are a uint32 count followed
// by that many uint32 values.

type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) u32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, ErrTruncatedStream
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *reader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

// bytes returns a view into the input buffer. The length is checked against
// the remaining input before anything is allocated, so a hostile length
// prefix cannot force a huge allocation.
func (r *reader) bytes() ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(r.remaining()) {
		return nil, ErrTruncatedStream
	}
	b := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	return b, nil
}

func (r *reader) str() (string, error) {
	b, err := r.bytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrStreamCorrupt
	}
	return string(b), nil
}

func (r *reader) uidList() ([]uint32, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if uint64(n)*4 > uint64(r.remaining()) {
		return nil, ErrTruncatedStream
	}
	uids := make([]uint32, n)
	for i := range uids {
		uids[i], err = r.u32()
		if err != nil {
			return nil, err
		}
	}
	return uids, nil
}

type writer struct {
	buf []byte
}

func (w *writer) u32(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }

func (w *writer) i32(v int32) { w.u32(uint32(v)) }

func (w *writer) bytes(b []byte) {
	w.u32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *writer) str(s string) { w.bytes([]byte(s)) }

func (w *writer) uidList(uids []uint32) {
	w.u32(uint32(len(uids)))
	for _, uid := range uids {
		w.u32(uid)
	}
}
