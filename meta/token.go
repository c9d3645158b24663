package meta

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// Metadata table prefixes used for derived tokens
const (
	TableType   uint32 = 0x02
	TableField  uint32 = 0x04
	TableMethod uint32 = 0x06
)

// DeriveToken computes a stable token for a declaration that did not carry
// one. The row part is the first 24 bits of the BLAKE2b-256 digest of the
// declaration key; it is never zero.
func DeriveToken(table uint32, key string) uint32 {
	sum := blake2b.Sum256([]byte(key))
	row := binary.BigEndian.Uint32(sum[:4]) >> 8
	if row == 0 {
		row = 1
	}
	return table<<24 | row
}

// TokenTable returns the table prefix of a token
func TokenTable(token uint32) uint32 { return token >> 24 }
