package transaction

import "github.com/Lildeebo2002/aepp-sdk-go/pkg/encoding/apienc"

// txSchemas is the process-wide registry mapping (type tag, version) to
// the ordered field list of that serialization. It is built once at
// package initialization and never mutated afterwards.
//
// Entries are append-only across protocol upgrades: a new version of a
// type gets a new (tag, version) key, existing keys keep their exact
// field lists so that historic transactions stay decodable.
var txSchemas = map[Type]map[uint32][]FieldDef{
	SignedTx: {
		1: {
			{Name: "signatures", Kind: KindSignatures},
			{Name: "encodedTx", Kind: KindTx},
		},
	},
	SpendTx: {
		1: {
			{Name: "senderId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Account}},
			{Name: "recipientId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Account, apienc.Name, apienc.Contract, apienc.Oracle}},
			{Name: "amount", Kind: KindCoin},
			{Name: "fee", Kind: KindCoin},
			{Name: "ttl", Kind: KindInt},
			{Name: "nonce", Kind: KindInt},
			{Name: "payload", Kind: KindPayload},
		},
	},
	OracleRegisterTx: {
		1: {
			{Name: "accountId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Account}},
			{Name: "nonce", Kind: KindInt},
			{Name: "queryFormat", Kind: KindString},
			{Name: "responseFormat", Kind: KindString},
			{Name: "queryFee", Kind: KindInt},
			{Name: "oracleTtlType", Kind: KindInt},
			{Name: "oracleTtlValue", Kind: KindInt},
			{Name: "fee", Kind: KindCoin},
			{Name: "ttl", Kind: KindInt},
			{Name: "abiVersion", Kind: KindInt},
		},
	},
	OracleQueryTx: {
		1: {
			{Name: "senderId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Account}},
			{Name: "nonce", Kind: KindInt},
			{Name: "oracleId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Oracle}},
			{Name: "query", Kind: KindString},
			{Name: "queryFee", Kind: KindInt},
			{Name: "queryTtlType", Kind: KindInt},
			{Name: "queryTtlValue", Kind: KindInt},
			{Name: "responseTtlType", Kind: KindInt},
			{Name: "responseTtlValue", Kind: KindInt},
			{Name: "fee", Kind: KindCoin},
			{Name: "ttl", Kind: KindInt},
		},
	},
	OracleResponseTx: {
		1: {
			{Name: "oracleId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Oracle}},
			{Name: "nonce", Kind: KindInt},
			{Name: "queryId", Kind: KindBinary, Prefix: apienc.OracleQueryID, Size: 32},
			{Name: "response", Kind: KindString},
			{Name: "responseTtlType", Kind: KindInt},
			{Name: "responseTtlValue", Kind: KindInt},
			{Name: "fee", Kind: KindCoin},
			{Name: "ttl", Kind: KindInt},
		},
	},
	OracleExtendTx: {
		1: {
			{Name: "oracleId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Oracle}},
			{Name: "nonce", Kind: KindInt},
			{Name: "oracleTtlType", Kind: KindInt},
			{Name: "oracleTtlValue", Kind: KindInt},
			{Name: "fee", Kind: KindCoin},
			{Name: "ttl", Kind: KindInt},
		},
	},
	NameClaimTx: {
		1: {
			{Name: "accountId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Account}},
			{Name: "nonce", Kind: KindInt},
			{Name: "name", Kind: KindString},
			{Name: "nameSalt", Kind: KindInt},
			{Name: "fee", Kind: KindCoin},
			{Name: "ttl", Kind: KindInt},
		},
		// Version 2 added the explicit name auction fee.
		2: {
			{Name: "accountId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Account}},
			{Name: "nonce", Kind: KindInt},
			{Name: "name", Kind: KindString},
			{Name: "nameSalt", Kind: KindInt},
			{Name: "nameFee", Kind: KindCoin},
			{Name: "fee", Kind: KindCoin},
			{Name: "ttl", Kind: KindInt},
		},
	},
	NamePreclaimTx: {
		1: {
			{Name: "accountId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Account}},
			{Name: "nonce", Kind: KindInt},
			{Name: "commitmentId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Commitment}},
			{Name: "fee", Kind: KindCoin},
			{Name: "ttl", Kind: KindInt},
		},
	},
	NameUpdateTx: {
		1: {
			{Name: "accountId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Account}},
			{Name: "nonce", Kind: KindInt},
			{Name: "nameId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Name}},
			{Name: "nameTtl", Kind: KindInt},
			{Name: "pointers", Kind: KindPointers},
			{Name: "clientTtl", Kind: KindInt},
			{Name: "fee", Kind: KindCoin},
			{Name: "ttl", Kind: KindInt},
		},
	},
	NameRevokeTx: {
		1: {
			{Name: "accountId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Account}},
			{Name: "nonce", Kind: KindInt},
			{Name: "nameId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Name}},
			{Name: "fee", Kind: KindCoin},
			{Name: "ttl", Kind: KindInt},
		},
	},
	NameTransferTx: {
		1: {
			{Name: "accountId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Account}},
			{Name: "nonce", Kind: KindInt},
			{Name: "nameId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Name}},
			{Name: "recipientId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Account, apienc.Name}},
			{Name: "fee", Kind: KindCoin},
			{Name: "ttl", Kind: KindInt},
		},
	},
	ContractCreateTx: {
		1: {
			{Name: "ownerId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Account}},
			{Name: "nonce", Kind: KindInt},
			{Name: "code", Kind: KindBinary, Prefix: apienc.ContractBytecode},
			{Name: "ctVersion", Kind: KindCtVersion},
			{Name: "fee", Kind: KindCoin},
			{Name: "ttl", Kind: KindInt},
			{Name: "deposit", Kind: KindCoin},
			{Name: "amount", Kind: KindCoin},
			{Name: "gasLimit", Kind: KindGas},
			{Name: "gasPrice", Kind: KindInt},
			{Name: "callData", Kind: KindBinary, Prefix: apienc.ContractBytecode},
		},
	},
	ContractCallTx: {
		1: {
			{Name: "callerId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Account}},
			{Name: "nonce", Kind: KindInt},
			{Name: "contractId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Contract, apienc.Name}},
			{Name: "abiVersion", Kind: KindInt},
			{Name: "fee", Kind: KindCoin},
			{Name: "ttl", Kind: KindInt},
			{Name: "amount", Kind: KindCoin},
			{Name: "gasLimit", Kind: KindGas},
			{Name: "gasPrice", Kind: KindInt},
			{Name: "callData", Kind: KindBinary, Prefix: apienc.ContractBytecode},
		},
	},
	GaAttachTx: {
		1: {
			{Name: "ownerId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Account}},
			{Name: "nonce", Kind: KindInt},
			{Name: "code", Kind: KindBinary, Prefix: apienc.ContractBytecode},
			{Name: "authFun", Kind: KindBinary, Size: 32},
			{Name: "ctVersion", Kind: KindCtVersion},
			{Name: "fee", Kind: KindCoin},
			{Name: "ttl", Kind: KindInt},
			{Name: "gasLimit", Kind: KindGas},
			{Name: "gasPrice", Kind: KindInt},
			{Name: "callData", Kind: KindBinary, Prefix: apienc.ContractBytecode},
		},
	},
	GaMetaTx: {
		2: {
			{Name: "gaId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Account}},
			{Name: "authData", Kind: KindBinary, Prefix: apienc.ContractBytecode},
			{Name: "abiVersion", Kind: KindInt},
			{Name: "fee", Kind: KindCoin},
			{Name: "gasLimit", Kind: KindGas},
			{Name: "gasPrice", Kind: KindInt},
			{Name: "tx", Kind: KindTx},
		},
	},
	PayingForTx: {
		1: {
			{Name: "payerId", Kind: KindID, IDPrefixes: []apienc.Prefix{apienc.Account}},
			{Name: "nonce", Kind: KindInt},
			{Name: "fee", Kind: KindCoin},
			{Name: "tx", Kind: KindTx},
		},
	},
}

// Schema resolves the field list for the given transaction type.
// Version 0 selects the highest registered version of the type. The
// returned slice is shared; callers must not modify it.
func Schema(t Type, version uint32) ([]FieldDef, uint32, error) {
	versions, ok := txSchemas[t]
	if !ok {
		return nil, 0, &SchemaNotFoundError{Type: t, Version: version}
	}
	if version == 0 {
		for v := range versions {
			if v > version {
				version = v
			}
		}
	}
	fields, ok := versions[version]
	if !ok {
		return nil, 0, &SchemaNotFoundError{Type: t, Version: version}
	}
	return fields, version, nil
}
