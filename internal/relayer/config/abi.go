package config

import (
	"encoding/json"
	"fmt"
)

// decodeABIFile parses the single ABI JSON file shared by every configured
// chain, keyed by chain id the same way get_abi indexes `abi[str(chain_id)]`
// into one on-disk JSON document instead of one file per chain.
func decodeABIFile(content []byte) (map[uint64]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("relayer: decoding abi file: %w", err)
	}

	out := make(map[uint64]string, len(raw))
	for key, value := range raw {
		var chainID uint64
		if _, err := fmt.Sscanf(key, "%d", &chainID); err != nil {
			continue
		}
		out[chainID] = string(value)
	}
	return out, nil
}
