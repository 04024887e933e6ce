// Package guid builds 128-bit identifiers that carry their own routing
// metadata. Layout (big endian):
//
//	bytes 0..3   seconds since Epoch
//	byte  4      region code
//	bytes 5..6   bucket code
//	bytes 7..14  random entropy
//	byte  15     high nibble: XOR checksum of bytes 0..14; low nibble: flags
//
// IDs render in the canonical 8-4-4-4-12 hex form so they fit uuid columns.
package guid

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Epoch is the reference point for the embedded timestamp.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

var (
	ErrMalformed = errors.New("malformed guid")
	ErrChecksum  = errors.New("guid checksum mismatch")
)

type ID struct {
	Timestamp  uint32
	Region     byte
	BucketCode uint16
	Entropy    uint64
	Flags      byte
}

// NewAt stamps an ID with now and fresh entropy.
func NewAt(now time.Time, region byte, bucketCode uint16) (ID, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return ID{}, err
	}
	return ID{
		Timestamp:  TimestampAt(now),
		Region:     region,
		BucketCode: bucketCode,
		Entropy:    binary.BigEndian.Uint64(b[:]),
	}, nil
}

// TimestampAt returns whole seconds since Epoch, clamped at zero.
func TimestampAt(t time.Time) uint32 {
	d := t.UTC().Sub(Epoch)
	if d < 0 {
		return 0
	}
	return uint32(d / time.Second)
}

func (id ID) Time() time.Time {
	return Epoch.Add(time.Duration(id.Timestamp) * time.Second)
}

func (id ID) Bytes() [16]byte {
	var b [16]byte
	binary.BigEndian.PutUint32(b[0:4], id.Timestamp)
	b[4] = id.Region
	binary.BigEndian.PutUint16(b[5:7], id.BucketCode)
	binary.BigEndian.PutUint64(b[7:15], id.Entropy)
	b[15] = checksum(b)<<4 | id.Flags&0x0F
	return b
}

func (id ID) String() string {
	return uuid.UUID(id.Bytes()).String()
}

// Parse decodes the string form and verifies the checksum nibble.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, ErrMalformed
	}
	b := [16]byte(u)
	if b[15]>>4 != checksum(b) {
		return ID{}, ErrChecksum
	}
	return ID{
		Timestamp:  binary.BigEndian.Uint32(b[0:4]),
		Region:     b[4],
		BucketCode: binary.BigEndian.Uint16(b[5:7]),
		Entropy:    binary.BigEndian.Uint64(b[7:15]),
		Flags:      b[15] & 0x0F,
	}, nil
}

func checksum(b [16]byte) byte {
	var sum byte
	for _, v := range b[:15] {
		sum ^= v
	}
	return sum & 0x0F
}
