package transaction

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// SchemaNotFoundError is returned when no serialization schema is
// registered for the requested transaction type or version.
type SchemaNotFoundError struct {
	Type    Type
	Version uint32 // 0 when any version was acceptable
}

func (e *SchemaNotFoundError) Error() string {
	if e.Version == 0 {
		return fmt.Sprintf("no schema registered for %s", e.Type)
	}
	return fmt.Sprintf("no schema registered for %s version %d", e.Type, e.Version)
}

// DecodeError is returned for malformed transaction bytes: bad string
// encoding, bad RLP, a field count not matching the schema or a type
// tag not matching the caller's expectation.
type DecodeError struct {
	msg string
	err error
}

func newDecodeError(format string, args ...interface{}) *DecodeError {
	return &DecodeError{msg: fmt.Sprintf(format, args...)}
}

func wrapDecodeError(err error, format string, args ...interface{}) *DecodeError {
	return &DecodeError{msg: fmt.Sprintf(format, args...), err: err}
}

func (e *DecodeError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *DecodeError) Unwrap() error { return e.err }

// InvalidTxParamsError is returned by Build when one or more fields
// fail validation. Fields maps field name to a human-readable message
// and is expected to be surfaced to end users verbatim.
type InvalidTxParamsError struct {
	Fields map[string]string
}

func (e *InvalidTxParamsError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "invalid transaction parameters: " + strings.Join(parts, "; ")
}

// ArgumentError is returned for an out-of-range scalar argument.
type ArgumentError struct {
	Name   string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Name, e.Reason)
}

// UnsupportedProtocolError is returned when the active consensus
// protocol version is not known to this build. It indicates a context
// problem rather than a bad transaction.
type UnsupportedProtocolError struct {
	Protocol uint64
}

func (e *UnsupportedProtocolError) Error() string {
	return fmt.Sprintf("unsupported consensus protocol %d", e.Protocol)
}

// UnknownTxError is returned when a transaction type has no vm/abi
// entry under the active consensus protocol.
type UnknownTxError struct {
	Type     Type
	Protocol uint64
}

func (e *UnknownTxError) Error() string {
	return fmt.Sprintf("%s has no vm/abi entry under protocol %d", e.Type, e.Protocol)
}

// ErrAccountNotFound is reported by ChainQuery implementations when the
// queried account does not exist on chain yet.
var ErrAccountNotFound = errors.New("account not found")

// ErrContractNotFound is reported by ChainQuery implementations when
// the queried contract does not exist on chain.
var ErrContractNotFound = errors.New("contract not found")
