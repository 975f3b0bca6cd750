package core

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"math"

	"golang.org/x/crypto/blake2b"
)

// HashSize is the digest width used for instancing and side-car file names
const HashSize = 16

// Hash is a 128-bit content digest
type Hash [HashSize]byte

// String returns the digest as lowercase hex
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether the digest is unset
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Hashable is implemented by values that can feed themselves into a Hasher
type Hashable interface {
	Hash(h *Hasher)
}

// Hasher accumulates values into a blake2b-128 digest. Every value is
// prefixed with a type tag so that e.g. int 1 and float 1 differ.
type Hasher struct {
	h   hash.Hash
	buf [8]byte
}

// NewHasher creates an empty hasher
func NewHasher() *Hasher {
	h, err := blake2b.New(HashSize, nil)
	if err != nil {
		// Only reachable with an invalid size or key
		panic(fmt.Sprintf("blake2b: %v", err))
	}
	return &Hasher{h: h}
}

// Sum returns the digest of everything appended so far
func (hs *Hasher) Sum() Hash {
	var out Hash
	copy(out[:], hs.h.Sum(nil))
	return out
}

func (hs *Hasher) tag(t byte) {
	hs.h.Write([]byte{t})
}

func (hs *Hasher) writeUint64(v uint64) {
	binary.LittleEndian.PutUint64(hs.buf[:], v)
	hs.h.Write(hs.buf[:])
}

func (hs *Hasher) writeFloat(f float64) {
	hs.writeUint64(math.Float64bits(f))
}

// AppendString appends a length-prefixed string
func (hs *Hasher) AppendString(s string) *Hasher {
	hs.tag('s')
	hs.writeUint64(uint64(len(s)))
	hs.h.Write([]byte(s))
	return hs
}

// AppendFloat appends a float
func (hs *Hasher) AppendFloat(f float64) *Hasher {
	hs.tag('f')
	hs.writeFloat(f)
	return hs
}

// AppendInt appends an int
func (hs *Hasher) AppendInt(i int) *Hasher {
	hs.tag('i')
	hs.writeUint64(uint64(int64(i)))
	return hs
}

// AppendHash appends another digest
func (hs *Hasher) AppendHash(h Hash) *Hasher {
	hs.tag('h')
	hs.h.Write(h[:])
	return hs
}

// Append appends any supported value. Parameter blocks are hashed in key
// order so the digest is independent of map iteration order.
func (hs *Hasher) Append(value any) *Hasher {
	switch v := value.(type) {
	case nil:
		hs.tag('0')
	case Hashable:
		v.Hash(hs)
	case Hash:
		hs.AppendHash(v)
	case bool:
		hs.tag('b')
		if v {
			hs.h.Write([]byte{1})
		} else {
			hs.h.Write([]byte{0})
		}
	case int:
		hs.AppendInt(v)
	case int64:
		hs.AppendInt(int(v))
	case float32:
		hs.AppendFloat(float64(v))
	case float64:
		hs.AppendFloat(v)
	case string:
		hs.AppendString(v)
	case Vec3:
		hs.tag('v')
		hs.writeFloat(v.X)
		hs.writeFloat(v.Y)
		hs.writeFloat(v.Z)
	case Color:
		hs.tag('c')
		hs.writeFloat(v.R)
		hs.writeFloat(v.G)
		hs.writeFloat(v.B)
	case V2f:
		hs.tag('2')
		hs.writeFloat(v[0])
		hs.writeFloat(v[1])
	case V2i:
		hs.tag('I')
		hs.writeUint64(uint64(int64(v[0])))
		hs.writeUint64(uint64(int64(v[1])))
	case Box2f:
		hs.tag('B')
		hs.writeFloat(v.Min[0])
		hs.writeFloat(v.Min[1])
		hs.writeFloat(v.Max[0])
		hs.writeFloat(v.Max[1])
	case Mat44:
		hs.tag('m')
		for _, f := range v.Values() {
			hs.writeFloat(f)
		}
	case []float64:
		hs.tag('F')
		hs.writeUint64(uint64(len(v)))
		for _, f := range v {
			hs.writeFloat(f)
		}
	case []int:
		hs.tag('N')
		hs.writeUint64(uint64(len(v)))
		for _, n := range v {
			hs.writeUint64(uint64(int64(n)))
		}
	case []Vec3:
		hs.tag('V')
		hs.writeUint64(uint64(len(v)))
		for _, p := range v {
			hs.writeFloat(p.X)
			hs.writeFloat(p.Y)
			hs.writeFloat(p.Z)
		}
	case []Color:
		hs.tag('C')
		hs.writeUint64(uint64(len(v)))
		for _, c := range v {
			hs.writeFloat(c.R)
			hs.writeFloat(c.G)
			hs.writeFloat(c.B)
		}
	case []string:
		hs.tag('S')
		hs.writeUint64(uint64(len(v)))
		for _, s := range v {
			hs.AppendString(s)
		}
	case Params:
		hs.tag('p')
		hs.writeUint64(uint64(len(v)))
		for _, k := range v.SortedKeys() {
			hs.AppendString(k)
			hs.Append(v[k])
		}
	default:
		hs.tag('?')
		hs.AppendString(fmt.Sprintf("%T:%v", v, v))
	}
	return hs
}
