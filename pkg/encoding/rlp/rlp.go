// Package rlp implements the recursive length prefix encoding used for
// canonical transaction bytes: a self-describing binary format for
// nested byte strings and lists.
//
// Decoding is strict: length prefixes must be minimal, single bytes
// below 0x80 must be encoded as themselves and the input must be
// consumed exactly. Anything else fails, so a given tree has exactly
// one valid encoding.
package rlp

import (
	"errors"
	"fmt"
)

// Kind discriminates the two node kinds of an RLP tree.
type Kind uint8

// Node kinds.
const (
	String Kind = iota
	List
)

// Item is a node in an RLP tree: either a byte string or a list of
// further items.
type Item struct {
	Kind Kind
	Str  []byte
	List []Item
}

// Bytes returns a string item holding b.
func Bytes(b []byte) Item {
	return Item{Kind: String, Str: b}
}

// NewList returns a list item holding the given items.
func NewList(items ...Item) Item {
	if items == nil {
		items = []Item{}
	}
	return Item{Kind: List, List: items}
}

// ErrNonCanonical is returned when a decoded value is valid RLP data
// but not in its unique minimal form.
var ErrNonCanonical = errors.New("non-canonical rlp encoding")

// ErrTruncated is returned when the input ends inside a value.
var ErrTruncated = errors.New("truncated rlp input")

const (
	strShortTag = 0x80
	strLongTag  = 0xb7
	listShortTag = 0xc0
	listLongTag  = 0xf7
	shortLimit   = 55
)

// Encode returns the canonical encoding of the given item tree.
func Encode(it Item) []byte {
	return appendItem(nil, it)
}

func appendItem(dst []byte, it Item) []byte {
	if it.Kind == String {
		if len(it.Str) == 1 && it.Str[0] < strShortTag {
			return append(dst, it.Str[0])
		}
		dst = appendLength(dst, strShortTag, strLongTag, len(it.Str))
		return append(dst, it.Str...)
	}
	var payload []byte
	for _, el := range it.List {
		payload = appendItem(payload, el)
	}
	dst = appendLength(dst, listShortTag, listLongTag, len(payload))
	return append(dst, payload...)
}

func appendLength(dst []byte, short, long byte, n int) []byte {
	if n <= shortLimit {
		return append(dst, short+byte(n))
	}
	var size [8]byte
	i := len(size)
	for v := uint64(n); v > 0; v >>= 8 {
		i--
		size[i] = byte(v)
	}
	dst = append(dst, long+byte(len(size)-i))
	return append(dst, size[i:]...)
}

// Decode parses b as a single canonical RLP value, requiring the whole
// input to be consumed.
func Decode(b []byte) (Item, error) {
	it, rest, err := decodeItem(b)
	if err != nil {
		return Item{}, err
	}
	if len(rest) != 0 {
		return Item{}, fmt.Errorf("%d trailing bytes after rlp value", len(rest))
	}
	return it, nil
}

func decodeItem(b []byte) (Item, []byte, error) {
	if len(b) == 0 {
		return Item{}, nil, ErrTruncated
	}
	tag := b[0]
	switch {
	case tag < strShortTag:
		return Bytes(b[:1]), b[1:], nil

	case tag <= strLongTag:
		n := int(tag - strShortTag)
		if len(b)-1 < n {
			return Item{}, nil, ErrTruncated
		}
		if n == 1 && b[1] < strShortTag {
			return Item{}, nil, fmt.Errorf("%w: single byte below 0x80", ErrNonCanonical)
		}
		return Bytes(b[1 : 1+n]), b[1+n:], nil

	case tag < listShortTag:
		n, rest, err := decodeLongLength(b[1:], int(tag-strLongTag))
		if err != nil {
			return Item{}, nil, err
		}
		if len(rest) < n {
			return Item{}, nil, ErrTruncated
		}
		return Bytes(rest[:n]), rest[n:], nil

	case tag <= listLongTag:
		n := int(tag - listShortTag)
		if len(b)-1 < n {
			return Item{}, nil, ErrTruncated
		}
		return decodeListPayload(b[1:1+n], b[1+n:])

	default:
		n, rest, err := decodeLongLength(b[1:], int(tag-listLongTag))
		if err != nil {
			return Item{}, nil, err
		}
		if len(rest) < n {
			return Item{}, nil, ErrTruncated
		}
		return decodeListPayload(rest[:n], rest[n:])
	}
}

func decodeLongLength(b []byte, sizeLen int) (int, []byte, error) {
	if len(b) < sizeLen {
		return 0, nil, ErrTruncated
	}
	if b[0] == 0 {
		return 0, nil, fmt.Errorf("%w: length has leading zero", ErrNonCanonical)
	}
	if sizeLen > 8 {
		return 0, nil, errors.New("rlp value too large")
	}
	var n uint64
	for _, c := range b[:sizeLen] {
		n = n<<8 | uint64(c)
	}
	if n <= shortLimit {
		return 0, nil, fmt.Errorf("%w: long form used for short value", ErrNonCanonical)
	}
	if n > uint64(int(^uint(0)>>1)) {
		return 0, nil, errors.New("rlp value too large")
	}
	return int(n), b[sizeLen:], nil
}

func decodeListPayload(payload, rest []byte) (Item, []byte, error) {
	items := []Item{}
	for len(payload) > 0 {
		el, tail, err := decodeItem(payload)
		if err != nil {
			return Item{}, nil, err
		}
		items = append(items, el)
		payload = tail
	}
	return NewList(items...), rest, nil
}
