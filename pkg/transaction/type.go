package transaction

import "fmt"

// Type is the numeric discriminator (object tag) identifying a
// transaction type on the wire.
type Type uint8

// Transaction type tags.
const (
	SignedTx         Type = 11
	SpendTx          Type = 12
	OracleRegisterTx Type = 22
	OracleQueryTx    Type = 23
	OracleResponseTx Type = 24
	OracleExtendTx   Type = 25
	NameClaimTx      Type = 32
	NamePreclaimTx   Type = 33
	NameUpdateTx     Type = 34
	NameRevokeTx     Type = 35
	NameTransferTx   Type = 36
	ContractCreateTx Type = 42
	ContractCallTx   Type = 43
	GaAttachTx       Type = 80
	GaMetaTx         Type = 81
	PayingForTx      Type = 123
)

var typeNames = map[Type]string{
	SignedTx:         "SignedTx",
	SpendTx:          "SpendTx",
	OracleRegisterTx: "OracleRegisterTx",
	OracleQueryTx:    "OracleQueryTx",
	OracleResponseTx: "OracleResponseTx",
	OracleExtendTx:   "OracleExtendTx",
	NameClaimTx:      "NameClaimTx",
	NamePreclaimTx:   "NamePreclaimTx",
	NameUpdateTx:     "NameUpdateTx",
	NameRevokeTx:     "NameRevokeTx",
	NameTransferTx:   "NameTransferTx",
	ContractCreateTx: "ContractCreateTx",
	ContractCallTx:   "ContractCallTx",
	GaAttachTx:       "GaAttachTx",
	GaMetaTx:         "GaMetaTx",
	PayingForTx:      "PayingForTx",
}

// String implements fmt.Stringer.
func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("UnknownTx(%d)", uint8(t))
}

// idTag is the discriminator byte prepended to object hashes inside
// serialized identifier fields.
type idTag uint8

const (
	idTagAccount    idTag = 1
	idTagName       idTag = 2
	idTagCommitment idTag = 3
	idTagOracle     idTag = 4
	idTagContract   idTag = 5
	idTagChannel    idTag = 6
)
