package transaction

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/Lildeebo2002/aepp-sdk-go/pkg/crypto/hash"
	"github.com/Lildeebo2002/aepp-sdk-go/pkg/encoding/apienc"
	"github.com/Lildeebo2002/aepp-sdk-go/pkg/encoding/rlp"
)

// Denomination selects the unit of coin-valued build parameters.
type Denomination string

// Supported denominations. The chain itself accounts in aettos;
// 1 AE = 10^18 aettos.
const (
	Aettos Denomination = "aettos"
	AE     Denomination = "ae"
)

var aettosPerAE = new(uint256.Int).Mul(
	uint256.NewInt(1_000_000_000), uint256.NewInt(1_000_000_000))

func (d Denomination) apply(n *uint256.Int) (*uint256.Int, error) {
	switch d {
	case "", Aettos:
		return n, nil
	case AE:
		out, overflow := new(uint256.Int).MulOverflow(n, aettosPerAE)
		if overflow {
			return nil, fmt.Errorf("amount overflows 256 bits in aettos")
		}
		return out, nil
	}
	return nil, &ArgumentError{Name: "denomination", Reason: fmt.Sprintf("unknown denomination %q", string(d))}
}

// ToAettos converts a value expressed in this denomination into
// aettos, the chain's accounting unit.
func (d Denomination) ToAettos(n *uint256.Int) (*uint256.Int, error) {
	return d.apply(n)
}

// BuildOptions tunes a single Build call. The zero value selects the
// latest schema version, no excluded fields, the "tx" output prefix and
// aetto amounts.
type BuildOptions struct {
	// Version pins the schema version; 0 resolves to the latest one.
	Version uint32
	// ExcludeFields names schema fields to skip during validation and
	// serialization. The resulting bytes are not schema-complete, so
	// the built transaction carries no eagerly unpacked form.
	ExcludeFields []string
	// Prefix overrides the output string prefix (default "tx").
	Prefix apienc.Prefix
	// Denomination is the unit of coin-valued fields.
	Denomination Denomination
}

// RawTransaction is the decoded form of a transaction: its type tag,
// schema version and normalized field values. Instances are produced by
// decoding only and must be treated as immutable.
type RawTransaction struct {
	Type    Type
	Version uint32
	Fields  Fields
}

// Field returns the named field value, nil when absent.
func (r *RawTransaction) Field(name string) interface{} {
	return r.Fields[name]
}

// Int returns the named field as an unsigned integer, zero when the
// field is absent or not an integer.
func (r *RawTransaction) Int(name string) *uint256.Int {
	if n, ok := r.Fields[name].(*uint256.Int); ok {
		return n
	}
	return uint256.NewInt(0)
}

// ID returns the named identifier field, "" when absent.
func (r *RawTransaction) ID(name string) string {
	if s, ok := r.Fields[name].(string); ok {
		return s
	}
	return ""
}

// BuiltTransaction is the result of a successful Build call. All parts
// describe the same bytes: Encoded is a pure function of RLPBytes, and
// FieldItems is the tag/version/field item list those bytes encode.
type BuiltTransaction struct {
	Encoded    string
	RLPBytes   []byte
	FieldItems []rlp.Item
	Raw        *RawTransaction
}

// Hash returns the transaction hash id ("th_...") of the built bytes.
func (b *BuiltTransaction) Hash() string {
	return Hash(b.RLPBytes)
}

// Build validates fields against the schema of the given transaction
// type, serializes them in schema order, RLP-encodes the result and
// returns it with its prefixed string form and an eagerly unpacked
// copy. Identical inputs always produce byte-identical output; any
// chain-dependent parameter (nonce, ttl, fee) must be resolved before
// calling Build.
func Build(t Type, fields Fields, opts *BuildOptions) (*BuiltTransaction, error) {
	if opts == nil {
		opts = &BuildOptions{}
	}
	schema, version, err := Schema(t, opts.Version)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(opts.ExcludeFields))
	for _, name := range opts.ExcludeFields {
		excluded[name] = true
	}

	problems := map[string]string{}
	for _, def := range schema {
		if excluded[def.Name] {
			continue
		}
		if msg := validateField(def, fields); msg != "" {
			problems[def.Name] = msg
		}
	}
	if _, err := opts.Denomination.apply(uint256.NewInt(0)); err != nil {
		return nil, err
	}
	if len(problems) > 0 {
		return nil, &InvalidTxParamsError{Fields: problems}
	}

	items := make([]rlp.Item, 0, len(schema)+2)
	items = append(items,
		rlp.Bytes(uint256.NewInt(uint64(t)).Bytes()),
		rlp.Bytes(uint256.NewInt(uint64(version)).Bytes()),
	)
	for _, def := range schema {
		if excluded[def.Name] {
			continue
		}
		it, err := serializeField(def, fields, opts.Denomination)
		if err != nil {
			return nil, &InvalidTxParamsError{Fields: map[string]string{def.Name: err.Error()}}
		}
		items = append(items, it)
	}

	rlpBytes := rlp.Encode(rlp.NewList(items...))
	prefix := opts.Prefix
	if prefix == "" {
		prefix = apienc.Transaction
	}
	built := &BuiltTransaction{
		Encoded:    apienc.Encode(prefix, rlpBytes),
		RLPBytes:   rlpBytes,
		FieldItems: items,
	}
	if len(excluded) == 0 {
		raw, err := UnpackBytes(rlpBytes, t)
		if err != nil {
			return nil, fmt.Errorf("unpacking freshly built transaction: %w", err)
		}
		built.Raw = raw
	}
	return built, nil
}

// Unpack decodes a prefixed transaction string into its raw form,
// returning the raw transaction together with the canonical bytes it
// was encoded from. A non-zero expected type makes decoding fail when
// the tag on the wire differs.
func Unpack(encoded string, expected Type) (*RawTransaction, []byte, error) {
	b, err := apienc.DecodeWith(apienc.Transaction, encoded)
	if err != nil {
		return nil, nil, wrapDecodeError(err, "decoding transaction string")
	}
	raw, err := UnpackBytes(b, expected)
	if err != nil {
		return nil, nil, err
	}
	return raw, b, nil
}

// UnpackBytes decodes canonical transaction bytes into their raw form.
func UnpackBytes(b []byte, expected Type) (*RawTransaction, error) {
	it, err := rlp.Decode(b)
	if err != nil {
		return nil, wrapDecodeError(err, "decoding transaction rlp")
	}
	if it.Kind != rlp.List || len(it.List) < 2 {
		return nil, newDecodeError("transaction must be an rlp list of at least tag and version")
	}
	tag, err := decodeWireInt("tag", it.List[0])
	if err != nil {
		return nil, err
	}
	vsn, err := decodeWireInt("version", it.List[1])
	if err != nil {
		return nil, err
	}
	if tag > 255 {
		return nil, newDecodeError("tag %d out of range", tag)
	}
	if vsn > 0xffffffff {
		return nil, newDecodeError("version %d out of range", vsn)
	}
	t := Type(tag)
	if expected != 0 && t != expected {
		return nil, newDecodeError("expected %s, got %s", expected, t)
	}
	// Version 0 is Build's latest-version request, never a registered
	// schema; on the wire it can only be a forgery.
	if vsn == 0 {
		return nil, &SchemaNotFoundError{Type: t, Version: 0}
	}

	schema, _, err := Schema(t, uint32(vsn))
	if err != nil {
		return nil, err
	}
	if len(it.List) != len(schema)+2 {
		return nil, newDecodeError("%s version %d carries %d elements, schema has %d",
			t, vsn, len(it.List), len(schema)+2)
	}

	fields := make(Fields, len(schema))
	for i, def := range schema {
		v, err := deserializeField(def, it.List[i+2])
		if err != nil {
			return nil, err
		}
		fields[def.Name] = v
	}
	return &RawTransaction{Type: t, Version: uint32(vsn), Fields: fields}, nil
}

func decodeWireInt(name string, it rlp.Item) (uint64, error) {
	if it.Kind != rlp.String {
		return 0, newDecodeError("%s must be an integer", name)
	}
	n, err := decodeInt(name, it.Str)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, newDecodeError("%s out of range", name)
	}
	return n.Uint64(), nil
}

// Hash returns the transaction hash id ("th_...") of canonical
// transaction bytes.
func Hash(rlpBytes []byte) string {
	return apienc.Encode(apienc.TxHash, hash.Blake2b256(rlpBytes))
}

// HashEncoded returns the transaction hash id of an encoded ("tx_...")
// transaction string.
func HashEncoded(encoded string) (string, error) {
	b, err := apienc.DecodeWith(apienc.Transaction, encoded)
	if err != nil {
		return "", wrapDecodeError(err, "decoding transaction string")
	}
	return Hash(b), nil
}
