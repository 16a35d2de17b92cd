// Package meta holds small free-form string attributes attached to
// transactions and goals (e.g. receipt references, external ids). The
// map is bounded and serializes with sorted keys so stored rows compare
// byte-for-byte.
package meta

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
)

type Metadata map[string]string

const (
	MaxPairs  = 16
	MaxKeyLen = 48
	MaxValLen = 200
)

var (
	ErrTooManyPairs = errors.New("metadata: too many pairs")
	ErrBadKey       = errors.New("metadata: key empty or too long")
	ErrBadValue     = errors.New("metadata: value too long")
)

func New(m map[string]string) Metadata {
	if m == nil {
		return Metadata{}
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m Metadata) Validate() error {
	if len(m) > MaxPairs {
		return ErrTooManyPairs
	}
	for k, v := range m {
		if k == "" || len(k) > MaxKeyLen {
			return ErrBadKey
		}
		if len(v) > MaxValLen {
			return ErrBadValue
		}
	}
	return nil
}

// MarshalStableJSON encodes the map with keys in sorted order.
func (m Metadata) MarshalStableJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *Metadata) UnmarshalJSON(b []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = New(raw)
	return nil
}
