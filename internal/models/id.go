package models

import (
	"bytes"
	"fmt"
	"strconv"
)

// ID is a numeric identifier that tolerates being encoded as either a JSON
// number or a JSON string. Legacy clients stringify ids in some payloads,
// so normalization happens once here, at the decoding boundary, and the
// rest of the code compares plain uint64 values.
type ID uint64

func (id ID) Uint64() uint64 { return uint64(id) }

func (id ID) String() string { return strconv.FormatUint(uint64(id), 10) }

func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatUint(uint64(id), 10)), nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", data, err)
	}
	*id = ID(n)
	return nil
}
