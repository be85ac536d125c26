package transaction

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/Lildeebo2002/aepp-sdk-go/pkg/encoding/apienc"
	"github.com/Lildeebo2002/aepp-sdk-go/pkg/encoding/rlp"
)

// Fields maps schema field names to their typed values.
type Fields map[string]interface{}

// FieldKind enumerates the closed set of field variants a schema can
// use. Serialization, deserialization and validation dispatch
// exhaustively on this kind, so adding a variant is a compile-time
// checked change.
type FieldKind uint8

// Field variants.
const (
	KindBool FieldKind = iota
	KindInt
	// KindCoin is an amount-like integer (fee, amount, deposit,
	// nameFee). Unlike KindInt it is optional, defaults to zero and is
	// subject to the denomination build option.
	KindCoin
	// KindGas is a gas quantity (gasLimit). Optional like KindCoin but
	// never denominated.
	KindGas
	KindID
	KindBinary
	KindString
	KindPayload
	KindTx
	KindTxList
	KindCtVersion
	KindStateHash
	KindPointers
	KindSignatures
	// KindDiagnostic carries opaque bytes surfaced for debugging only.
	KindDiagnostic
)

// Required reports whether fields of this variant must be present at
// build time. The exemption travels with the variant itself: coin-like
// amounts, payloads and diagnostic fields default to empty values.
func (k FieldKind) Required() bool {
	switch k {
	case KindCoin, KindGas, KindPayload, KindDiagnostic:
		return false
	}
	return true
}

// FieldDef describes one entry of a transaction schema.
type FieldDef struct {
	Name string
	Kind FieldKind
	// IDPrefixes restricts which object classes a KindID field
	// accepts; the first entry is the canonical one.
	IDPrefixes []apienc.Prefix
	// Prefix is the string-encoding prefix of KindBinary and
	// KindStateHash fields ("" = raw hex bytes).
	Prefix apienc.Prefix
	// Size is the exact payload length in bytes, 0 for variable.
	Size int
}

// CtVersion is the virtual machine / ABI version pair required by
// contract-related transactions. On the wire the pair is packed into a
// single integer.
type CtVersion struct {
	VMVersion  uint16
	ABIVersion uint16
}

// Pointer is one entry of a name's address-pointer list.
type Pointer struct {
	Key string
	ID  string
}

// NestedTx requests that a container field be assembled in place by a
// recursive Build call.
type NestedTx struct {
	Type    Type
	Version uint32 // 0 = latest
	Fields  Fields
}

var idTagByPrefix = map[apienc.Prefix]idTag{
	apienc.Account:    idTagAccount,
	apienc.Name:       idTagName,
	apienc.Commitment: idTagCommitment,
	apienc.Oracle:     idTagOracle,
	apienc.Contract:   idTagContract,
	apienc.Channel:    idTagChannel,
}

var prefixByIDTag = map[idTag]apienc.Prefix{
	idTagAccount:    apienc.Account,
	idTagName:       apienc.Name,
	idTagCommitment: apienc.Commitment,
	idTagOracle:     apienc.Oracle,
	idTagContract:   apienc.Contract,
	idTagChannel:    apienc.Channel,
}

// validateField checks the value of def inside fields and returns a
// human-readable message for the first problem found, or "" when the
// field is acceptable. ctx carries the sibling values for variants
// whose validity depends on them.
func validateField(def FieldDef, ctx Fields) string {
	v, ok := ctx[def.Name]
	if !ok || v == nil {
		if def.Kind.Required() {
			return "is required"
		}
		return ""
	}
	switch def.Kind {
	case KindBool:
		if _, ok := v.(bool); !ok {
			return "must be a boolean"
		}
	case KindInt, KindCoin, KindGas:
		if _, err := intValue(v); err != nil {
			return err.Error()
		}
	case KindID:
		if _, _, err := idValue(def, v); err != nil {
			return err.Error()
		}
	case KindBinary, KindStateHash:
		if _, err := binaryValue(def, v); err != nil {
			return err.Error()
		}
	case KindString:
		if _, err := stringValue(v); err != nil {
			return err.Error()
		}
	case KindPayload:
		if _, err := payloadValue(v); err != nil {
			return err.Error()
		}
	case KindTx:
		if _, err := nestedTxBytes(v); err != nil {
			return err.Error()
		}
	case KindTxList:
		if _, err := nestedTxListBytes(v); err != nil {
			return err.Error()
		}
	case KindCtVersion:
		ct, err := ctVersionValue(v)
		if err != nil {
			return err.Error()
		}
		if ct.VMVersion == 0 || ct.ABIVersion == 0 {
			return "must carry both vmVersion and abiVersion"
		}
	case KindPointers:
		if _, err := pointersValue(v); err != nil {
			return err.Error()
		}
	case KindSignatures:
		if _, err := signaturesValue(v); err != nil {
			return err.Error()
		}
	case KindDiagnostic:
		if _, ok := v.([]byte); !ok {
			return "must be raw bytes"
		}
	}
	return ""
}

// serializeField turns the value of def inside ctx into its RLP item.
// Values must already have passed validateField.
func serializeField(def FieldDef, ctx Fields, denom Denomination) (rlp.Item, error) {
	v, ok := ctx[def.Name]
	if !ok || v == nil {
		// Only non-required variants reach this point; they encode
		// their zero value.
		switch def.Kind {
		case KindCoin, KindGas, KindPayload, KindDiagnostic:
			return rlp.Bytes(nil), nil
		}
		return rlp.Item{}, fmt.Errorf("field %s missing at serialization", def.Name)
	}
	switch def.Kind {
	case KindBool:
		if v.(bool) {
			return rlp.Bytes([]byte{1}), nil
		}
		return rlp.Bytes(nil), nil
	case KindInt, KindGas:
		n, err := intValue(v)
		if err != nil {
			return rlp.Item{}, err
		}
		return rlp.Bytes(n.Bytes()), nil
	case KindCoin:
		n, err := intValue(v)
		if err != nil {
			return rlp.Item{}, err
		}
		n, err = denom.apply(n)
		if err != nil {
			return rlp.Item{}, err
		}
		return rlp.Bytes(n.Bytes()), nil
	case KindID:
		tag, data, err := idValue(def, v)
		if err != nil {
			return rlp.Item{}, err
		}
		return rlp.Bytes(append([]byte{byte(tag)}, data...)), nil
	case KindBinary, KindStateHash:
		b, err := binaryValue(def, v)
		if err != nil {
			return rlp.Item{}, err
		}
		return rlp.Bytes(b), nil
	case KindString:
		s, err := stringValue(v)
		if err != nil {
			return rlp.Item{}, err
		}
		return rlp.Bytes([]byte(s)), nil
	case KindPayload:
		b, err := payloadValue(v)
		if err != nil {
			return rlp.Item{}, err
		}
		return rlp.Bytes(b), nil
	case KindTx:
		b, err := nestedTxBytes(v)
		if err != nil {
			return rlp.Item{}, err
		}
		return rlp.Bytes(b), nil
	case KindTxList:
		bs, err := nestedTxListBytes(v)
		if err != nil {
			return rlp.Item{}, err
		}
		items := make([]rlp.Item, len(bs))
		for i, b := range bs {
			items[i] = rlp.Bytes(b)
		}
		return rlp.NewList(items...), nil
	case KindCtVersion:
		ct, err := ctVersionValue(v)
		if err != nil {
			return rlp.Item{}, err
		}
		packed := uint256.NewInt(uint64(ct.VMVersion)<<16 | uint64(ct.ABIVersion))
		return rlp.Bytes(packed.Bytes()), nil
	case KindPointers:
		ptrs, err := pointersValue(v)
		if err != nil {
			return rlp.Item{}, err
		}
		items := make([]rlp.Item, len(ptrs))
		for i, ptr := range ptrs {
			p, data, err := apienc.Decode(ptr.ID)
			if err != nil {
				return rlp.Item{}, err
			}
			tag, ok := idTagByPrefix[p]
			if !ok {
				return rlp.Item{}, fmt.Errorf("pointer %s: %q is not an identifier", ptr.Key, string(p))
			}
			items[i] = rlp.NewList(
				rlp.Bytes([]byte(ptr.Key)),
				rlp.Bytes(append([]byte{byte(tag)}, data...)),
			)
		}
		return rlp.NewList(items...), nil
	case KindSignatures:
		sigs, err := signaturesValue(v)
		if err != nil {
			return rlp.Item{}, err
		}
		items := make([]rlp.Item, len(sigs))
		for i, sig := range sigs {
			items[i] = rlp.Bytes(sig)
		}
		return rlp.NewList(items...), nil
	case KindDiagnostic:
		return rlp.Bytes(v.([]byte)), nil
	}
	return rlp.Item{}, fmt.Errorf("unhandled field kind %d", def.Kind)
}

// deserializeField turns an RLP item back into the normalized value
// form: prefixed strings for identifiers, *uint256.Int for integers,
// raw bytes for payloads and nested transactions.
func deserializeField(def FieldDef, it rlp.Item) (interface{}, error) {
	wantList := def.Kind == KindTxList || def.Kind == KindPointers || def.Kind == KindSignatures
	if (it.Kind == rlp.List) != wantList {
		return nil, newDecodeError("field %s: unexpected rlp shape", def.Name)
	}
	switch def.Kind {
	case KindBool:
		switch {
		case len(it.Str) == 0:
			return false, nil
		case len(it.Str) == 1 && it.Str[0] == 1:
			return true, nil
		}
		return nil, newDecodeError("field %s: invalid boolean", def.Name)
	case KindInt, KindCoin, KindGas:
		return decodeInt(def.Name, it.Str)
	case KindID:
		if len(it.Str) != 33 {
			return nil, newDecodeError("field %s: identifier must be 33 bytes, got %d", def.Name, len(it.Str))
		}
		p, ok := prefixByIDTag[idTag(it.Str[0])]
		if !ok {
			return nil, newDecodeError("field %s: unknown identifier tag %d", def.Name, it.Str[0])
		}
		return apienc.Encode(p, it.Str[1:]), nil
	case KindBinary, KindStateHash:
		if def.Size != 0 && len(it.Str) != def.Size {
			return nil, newDecodeError("field %s: %d bytes instead of %d", def.Name, len(it.Str), def.Size)
		}
		if def.Prefix != "" {
			return apienc.Encode(def.Prefix, it.Str), nil
		}
		return append([]byte(nil), it.Str...), nil
	case KindString:
		return string(it.Str), nil
	case KindPayload, KindTx, KindDiagnostic:
		return append([]byte(nil), it.Str...), nil
	case KindTxList:
		out := make([][]byte, len(it.List))
		for i, el := range it.List {
			if el.Kind != rlp.String {
				return nil, newDecodeError("field %s: element %d is not a byte string", def.Name, i)
			}
			out[i] = append([]byte(nil), el.Str...)
		}
		return out, nil
	case KindCtVersion:
		n, err := decodeInt(def.Name, it.Str)
		if err != nil {
			return nil, err
		}
		if !n.IsUint64() || n.Uint64()>>32 != 0 {
			return nil, newDecodeError("field %s: packed version out of range", def.Name)
		}
		packed := n.Uint64()
		return CtVersion{VMVersion: uint16(packed >> 16), ABIVersion: uint16(packed & 0xffff)}, nil
	case KindPointers:
		out := make([]Pointer, len(it.List))
		for i, el := range it.List {
			if el.Kind != rlp.List || len(el.List) != 2 ||
				el.List[0].Kind != rlp.String || el.List[1].Kind != rlp.String {
				return nil, newDecodeError("field %s: pointer %d malformed", def.Name, i)
			}
			id := el.List[1].Str
			if len(id) != 33 {
				return nil, newDecodeError("field %s: pointer %d identifier must be 33 bytes", def.Name, i)
			}
			p, ok := prefixByIDTag[idTag(id[0])]
			if !ok {
				return nil, newDecodeError("field %s: pointer %d has unknown identifier tag", def.Name, i)
			}
			out[i] = Pointer{Key: string(el.List[0].Str), ID: apienc.Encode(p, id[1:])}
		}
		return out, nil
	case KindSignatures:
		out := make([][]byte, len(it.List))
		for i, el := range it.List {
			if el.Kind != rlp.String || len(el.Str) != 64 {
				return nil, newDecodeError("field %s: signature %d malformed", def.Name, i)
			}
			out[i] = append([]byte(nil), el.Str...)
		}
		return out, nil
	}
	return nil, newDecodeError("unhandled field kind %d", def.Kind)
}

func decodeInt(name string, b []byte) (*uint256.Int, error) {
	if len(b) > 32 {
		return nil, newDecodeError("field %s: integer wider than 256 bits", name)
	}
	if len(b) > 0 && b[0] == 0 {
		return nil, newDecodeError("field %s: integer has leading zero byte", name)
	}
	return new(uint256.Int).SetBytes(b), nil
}

func intValue(v interface{}) (*uint256.Int, error) {
	switch n := v.(type) {
	case *uint256.Int:
		return n, nil
	case uint64:
		return uint256.NewInt(n), nil
	case uint32:
		return uint256.NewInt(uint64(n)), nil
	case int:
		if n < 0 {
			return nil, fmt.Errorf("must be non-negative")
		}
		return uint256.NewInt(uint64(n)), nil
	case int64:
		if n < 0 {
			return nil, fmt.Errorf("must be non-negative")
		}
		return uint256.NewInt(uint64(n)), nil
	case *big.Int:
		u, overflow := uint256.FromBig(n)
		if overflow || n.Sign() < 0 {
			return nil, fmt.Errorf("must fit an unsigned 256-bit integer")
		}
		return u, nil
	case string:
		b, ok := new(big.Int).SetString(n, 10)
		if !ok {
			return nil, fmt.Errorf("must be a decimal integer")
		}
		return intValue(b)
	}
	return nil, fmt.Errorf("must be an unsigned integer")
}

func idValue(def FieldDef, v interface{}) (idTag, []byte, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil, fmt.Errorf("must be a prefixed identifier string")
	}
	p, data, err := apienc.Decode(s)
	if err != nil {
		return 0, nil, err
	}
	for _, allowed := range def.IDPrefixes {
		if p == allowed {
			return idTagByPrefix[p], data, nil
		}
	}
	return 0, nil, fmt.Errorf("identifier class %q is not allowed here", string(p))
}

func binaryValue(def FieldDef, v interface{}) ([]byte, error) {
	var b []byte
	switch val := v.(type) {
	case []byte:
		b = val
	case string:
		var err error
		if def.Prefix != "" {
			b, err = apienc.DecodeWith(def.Prefix, val)
		} else {
			b, err = hex.DecodeString(val)
		}
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("must be bytes or an encoded string")
	}
	if def.Size != 0 && len(b) != def.Size {
		return nil, fmt.Errorf("must be exactly %d bytes", def.Size)
	}
	return b, nil
}

func stringValue(v interface{}) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	}
	return "", fmt.Errorf("must be a string")
}

func payloadValue(v interface{}) ([]byte, error) {
	switch val := v.(type) {
	case []byte:
		return val, nil
	case string:
		return apienc.DecodeWith(apienc.Bytearray, val)
	}
	return nil, fmt.Errorf("must be bytes or a ba_ string")
}

// nestedTxBytes resolves any accepted container-field value form to the
// canonical inner transaction bytes, invoking Build recursively for
// NestedTx values.
func nestedTxBytes(v interface{}) ([]byte, error) {
	switch inner := v.(type) {
	case []byte:
		return inner, nil
	case string:
		return apienc.DecodeWith(apienc.Transaction, inner)
	case *BuiltTransaction:
		return inner.RLPBytes, nil
	case NestedTx:
		built, err := Build(inner.Type, inner.Fields, &BuildOptions{Version: inner.Version})
		if err != nil {
			return nil, err
		}
		return built.RLPBytes, nil
	case *NestedTx:
		return nestedTxBytes(*inner)
	}
	return nil, fmt.Errorf("must be an inner transaction")
}

func nestedTxListBytes(v interface{}) ([][]byte, error) {
	var elems []interface{}
	switch list := v.(type) {
	case [][]byte:
		for _, el := range list {
			elems = append(elems, el)
		}
	case []string:
		for _, el := range list {
			elems = append(elems, el)
		}
	case []interface{}:
		elems = list
	default:
		return nil, fmt.Errorf("must be a list of inner transactions")
	}
	out := make([][]byte, len(elems))
	for i, el := range elems {
		b, err := nestedTxBytes(el)
		if err != nil {
			return nil, fmt.Errorf("element %d %s", i, err)
		}
		out[i] = b
	}
	return out, nil
}

func ctVersionValue(v interface{}) (CtVersion, error) {
	switch ct := v.(type) {
	case CtVersion:
		return ct, nil
	case *CtVersion:
		if ct == nil {
			return CtVersion{}, fmt.Errorf("must carry both vmVersion and abiVersion")
		}
		return *ct, nil
	}
	return CtVersion{}, fmt.Errorf("must be a vm/abi version pair")
}

func pointersValue(v interface{}) ([]Pointer, error) {
	ptrs, ok := v.([]Pointer)
	if !ok {
		return nil, fmt.Errorf("must be a pointer list")
	}
	for _, ptr := range ptrs {
		if len(ptr.Key) == 0 || len(ptr.Key) > 32 {
			return nil, fmt.Errorf("pointer key must be 1..32 bytes")
		}
	}
	return ptrs, nil
}

func signaturesValue(v interface{}) ([][]byte, error) {
	var out [][]byte
	switch sigs := v.(type) {
	case [][]byte:
		out = sigs
	case []string:
		for _, s := range sigs {
			b, err := apienc.DecodeWith(apienc.Signature, s)
			if err != nil {
				return nil, err
			}
			out = append(out, b)
		}
	default:
		return nil, fmt.Errorf("must be a signature list")
	}
	for i, sig := range out {
		if len(sig) != 64 {
			return nil, fmt.Errorf("signature %d must be 64 bytes", i)
		}
	}
	return out, nil
}
