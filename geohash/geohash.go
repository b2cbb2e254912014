package geohash

import (
	"errors"
	"fmt"

	"github.com/mmcloughlin/geohash"
)

// MaxPrecision is the longest geohash that still distinguishes float64
// coordinates.
const MaxPrecision = 12

// Alphabet is the geohash base32 alphabet. It is already in ascending byte
// order, so appending its symbols in sequence yields sorted children.
const Alphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// Fanout is the number of children of every geohash cell.
const Fanout = len(Alphabet)

var ErrInvalidHash = errors.New("invalid geohash")

// Box is a latitude/longitude rectangle.
type Box = geohash.Box

// Validate reports whether hash is a well formed geohash of at most
// MaxPrecision symbols.
func Validate(hash string) error {
	if len(hash) > MaxPrecision {
		return fmt.Errorf("%w %q: longer than %d", ErrInvalidHash, hash, MaxPrecision)
	}
	if err := geohash.Validate(hash); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidHash, hash, err)
	}
	return nil
}

func mustValidate(hash string) {
	if err := Validate(hash); err != nil {
		panic(err)
	}
}

// Encode coordinates into a geohash with specified precision.
func Encode(lat, lon float64, precision uint) string {
	if precision > MaxPrecision {
		panic(fmt.Errorf("%w: precision %d exceeds %d", ErrInvalidHash, precision, MaxPrecision))
	}
	return geohash.EncodeWithPrecision(lat, lon, precision)
}

// Decode returns the centre of the region hash covers. It panics if hash is
// malformed.
func Decode(hash string) (lat, lon float64) {
	mustValidate(hash)
	return geohash.DecodeCenter(hash)
}

// BoundingBox returns the region hash covers. The empty hash covers the
// whole world. It panics if hash is malformed.
func BoundingBox(hash string) Box {
	mustValidate(hash)
	return geohash.BoundingBox(hash)
}

// SubHashes returns the 32 hashes one symbol longer than hash, in ascending
// order.
func SubHashes(hash string) []string {
	mustValidate(hash)
	if len(hash) >= MaxPrecision {
		panic(fmt.Errorf("%w %q: already at maximum precision", ErrInvalidHash, hash))
	}
	subs := make([]string, 0, Fanout)
	for i := 0; i < len(Alphabet); i++ {
		subs = append(subs, hash+Alphabet[i:i+1])
	}
	return subs
}

// GetNeighbors returns the geohashes of neighboring cells.
func GetNeighbors(hash string) []string {
	mustValidate(hash)
	return geohash.Neighbors(hash)
}
