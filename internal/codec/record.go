// Package codec implements the self-framing on-disk encoding for the
// records IgniteDB appends to its segment files.
//
// Every record is one of two kinds: a Set, which carries a key and a value,
// or a Remove, a tombstone carrying only a key. Both are encoded with the
// same fixed header so that a reader positioned at any record boundary can
// decode exactly one record and learn exactly how many bytes it consumed,
// without ever needing to scan ahead or trust a separator byte.
package codec

import (
	"encoding/binary"
	"io"

	"github.com/iamNilotpal/ignite/pkg/errors"
)

// Kind distinguishes the two record variants that make up the log.
type Kind uint8

const (
	// KindSet marks a record that assigns a value to a key.
	KindSet Kind = iota
	// KindRemove marks a tombstone for a key.
	KindRemove
)

// HeaderSize is the number of bytes every record spends on framing before
// its key and value payloads: one tag byte plus two uint32 length fields.
const HeaderSize = 1 + 4 + 4

// Record is a single decoded log entry. For KindRemove, Value is empty.
type Record struct {
	Kind  Kind
	Key   string
	Value string
}

// Encode serializes rec into its on-disk form. Encode is a total function:
// it never fails, and the same Record always produces the same bytes.
func Encode(rec Record) []byte {
	buf := make([]byte, HeaderSize+len(rec.Key)+len(rec.Value))
	buf[0] = byte(rec.Kind)
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(rec.Key)))
	binary.BigEndian.PutUint32(buf[5:9], uint32(len(rec.Value)))
	n := copy(buf[HeaderSize:], rec.Key)
	copy(buf[HeaderSize+n:], rec.Value)
	return buf
}

// Size returns the number of on-disk bytes Encode would produce for rec,
// without allocating the buffer. Tests use this to check encoded lengths.
func Size(rec Record) uint64 {
	return uint64(HeaderSize + len(rec.Key) + len(rec.Value))
}

// DecodeOne reads exactly one record from r, starting at r's current
// position, and reports how many bytes it consumed.
//
// A clean end of stream — zero bytes available before the header — is
// reported as io.EOF so callers can tell "no more records" apart from
// "a record started but never finished". Any other short read is reported
// as a CodecError with ErrorCodeCorrupt: the stream was positioned at a
// record boundary but the bytes there don't form a complete record.
func DecodeOne(r io.Reader) (Record, uint64, error) {
	var header [HeaderSize]byte
	n, err := io.ReadFull(r, header[:])
	if err != nil {
		if n == 0 && err == io.EOF {
			return Record{}, 0, io.EOF
		}
		return Record{}, 0, errors.NewCodecError(err, errors.ErrorCodeCorrupt, "truncated record header").
			WithDetail("bytesRead", n)
	}

	tag := header[0]
	if tag != byte(KindSet) && tag != byte(KindRemove) {
		return Record{}, 0, errors.NewCodecError(nil, errors.ErrorCodeCorrupt, "unknown record tag").
			WithDetail("tag", tag)
	}

	keyLen := binary.BigEndian.Uint32(header[1:5])
	valLen := binary.BigEndian.Uint32(header[5:9])

	payload := make([]byte, keyLen+valLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Record{}, 0, errors.NewCodecError(err, errors.ErrorCodeCorrupt, "truncated record payload").
			WithDetail("keyLen", keyLen).
			WithDetail("valLen", valLen)
	}

	rec := Record{
		Kind:  Kind(tag),
		Key:   string(payload[:keyLen]),
		Value: string(payload[keyLen:]),
	}
	return rec, uint64(HeaderSize) + uint64(keyLen) + uint64(valLen), nil
}
