package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ID is a backend identifier. The backend emits ids both as JSON strings
// and as JSON numbers; both decode to the same string form. Integer ids
// are encoded back as JSON numbers.
type ID string

// MarshalJSON emits a bare number for canonical integer ids and a string otherwise
func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) numeric() bool {
	s := strings.TrimPrefix(string(id), "-")
	if s == "" || (s[0] == '0' && s != string(id)) || (s[0] == '0' && len(s) > 1) {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// UnmarshalJSON accepts a JSON string, a JSON number or null
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", string(data), err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the id as a plain string
func (id ID) String() string {
	return string(id)
}

// IDs converts plain strings to ids
func IDs(values ...string) []ID {
	ids := make([]ID, 0, len(values))
	for _, v := range values {
		ids = append(ids, ID(v))
	}
	return ids
}
