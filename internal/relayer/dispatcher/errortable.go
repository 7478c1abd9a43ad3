package dispatcher

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrorTable maps a Solidity custom error's 4-byte selector to its name,
// the selector_hex -> error_name table SPEC_FULL.md §6 asks the dispatcher
// to derive once per chain from its ABI at startup.
type ErrorTable struct {
	names map[[4]byte]string
}

// NewErrorTable derives one selector per abi.Errors entry: keccak256 of the
// error's canonical signature, truncated to 4 bytes, the same derivation
// Solidity itself uses for its custom-error ABI.
func NewErrorTable(contractABI abi.ABI) *ErrorTable {
	t := &ErrorTable{names: make(map[[4]byte]string, len(contractABI.Errors))}
	for name, def := range contractABI.Errors {
		sig := crypto.Keccak256([]byte(def.Sig))
		var selector [4]byte
		copy(selector[:], sig[:4])
		t.names[selector] = name
	}
	return t
}

// Decode returns the error name for a 4-byte selector, or its hex form if
// the table has no entry for it.
func (t *ErrorTable) Decode(selector []byte) string {
	if len(selector) != 4 {
		return "unknown"
	}
	var key [4]byte
	copy(key[:], selector)
	if name, ok := t.names[key]; ok {
		return name
	}
	return "0x" + hex.EncodeToString(selector)
}
