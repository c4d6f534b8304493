package api

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// PutRequest stores value under key at the given version.
type PutRequest struct {
	Key     string
	Value   []byte
	Version int64
}

// PutResponse reports whether the node accepted the write.
type PutResponse struct {
	Success bool
	Message string
}

// GetRequest asks a node for its copy of key.
type GetRequest struct {
	Key string
}

// GetResponse carries a node's copy of a key.
type GetResponse struct {
	Value   []byte
	Version int64
	Found   bool
}

// DeleteRequest removes key from a node.
type DeleteRequest struct {
	Key string
}

// DeleteResponse reports whether the node held and removed the key.
type DeleteResponse struct {
	Success bool
	Message string
}

// Empty is the request of ListKeys.
type Empty struct{}

// KeyListResponse lists every key a node holds.
type KeyListResponse struct {
	Keys []string
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

// fieldFunc decodes one field from b. It returns the number of bytes
// consumed, or ok=false to have the field skipped as unknown.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (n int, ok bool)

func consumeFields(b []byte, field fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m, ok := field(num, typ, b)
		if !ok {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}

func consumeString(typ protowire.Type, b []byte, dst *string) (int, bool) {
	if typ != protowire.BytesType {
		return 0, false
	}
	v, n := protowire.ConsumeString(b)
	if n >= 0 {
		*dst = v
	}
	return n, true
}

func consumeBytes(typ protowire.Type, b []byte, dst *[]byte) (int, bool) {
	if typ != protowire.BytesType {
		return 0, false
	}
	v, n := protowire.ConsumeBytes(b)
	if n >= 0 {
		*dst = append([]byte(nil), v...)
	}
	return n, true
}

func consumeInt64(typ protowire.Type, b []byte, dst *int64) (int, bool) {
	if typ != protowire.VarintType {
		return 0, false
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = int64(v)
	}
	return n, true
}

func consumeBool(typ protowire.Type, b []byte, dst *bool) (int, bool) {
	if typ != protowire.VarintType {
		return 0, false
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = protowire.DecodeBool(v)
	}
	return n, true
}

// MarshalWire encodes the message.
func (m *PutRequest) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Key)
	b = appendBytes(b, 2, m.Value)
	b = appendInt64(b, 3, m.Version)
	return b, nil
}

// UnmarshalWire decodes the message.
func (m *PutRequest) UnmarshalWire(b []byte) error {
	*m = PutRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.Key)
		case 2:
			return consumeBytes(typ, b, &m.Value)
		case 3:
			return consumeInt64(typ, b, &m.Version)
		}
		return 0, false
	})
}

// MarshalWire encodes the message.
func (m *PutResponse) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendBool(b, 1, m.Success)
	b = appendString(b, 2, m.Message)
	return b, nil
}

// UnmarshalWire decodes the message.
func (m *PutResponse) UnmarshalWire(b []byte) error {
	*m = PutResponse{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			return consumeBool(typ, b, &m.Success)
		case 2:
			return consumeString(typ, b, &m.Message)
		}
		return 0, false
	})
}

// MarshalWire encodes the message.
func (m *GetRequest) MarshalWire() ([]byte, error) {
	return appendString(nil, 1, m.Key), nil
}

// UnmarshalWire decodes the message.
func (m *GetRequest) UnmarshalWire(b []byte) error {
	*m = GetRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		if num == 1 {
			return consumeString(typ, b, &m.Key)
		}
		return 0, false
	})
}

// MarshalWire encodes the message.
func (m *GetResponse) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendBytes(b, 1, m.Value)
	b = appendInt64(b, 2, m.Version)
	b = appendBool(b, 3, m.Found)
	return b, nil
}

// UnmarshalWire decodes the message.
func (m *GetResponse) UnmarshalWire(b []byte) error {
	*m = GetResponse{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			return consumeBytes(typ, b, &m.Value)
		case 2:
			return consumeInt64(typ, b, &m.Version)
		case 3:
			return consumeBool(typ, b, &m.Found)
		}
		return 0, false
	})
}

// MarshalWire encodes the message.
func (m *DeleteRequest) MarshalWire() ([]byte, error) {
	return appendString(nil, 1, m.Key), nil
}

// UnmarshalWire decodes the message.
func (m *DeleteRequest) UnmarshalWire(b []byte) error {
	*m = DeleteRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		if num == 1 {
			return consumeString(typ, b, &m.Key)
		}
		return 0, false
	})
}

// MarshalWire encodes the message.
func (m *DeleteResponse) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendBool(b, 1, m.Success)
	b = appendString(b, 2, m.Message)
	return b, nil
}

// UnmarshalWire decodes the message.
func (m *DeleteResponse) UnmarshalWire(b []byte) error {
	*m = DeleteResponse{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			return consumeBool(typ, b, &m.Success)
		case 2:
			return consumeString(typ, b, &m.Message)
		}
		return 0, false
	})
}

// MarshalWire encodes the message.
func (m *Empty) MarshalWire() ([]byte, error) {
	return nil, nil
}

// UnmarshalWire decodes the message.
func (m *Empty) UnmarshalWire(b []byte) error {
	return consumeFields(b, func(protowire.Number, protowire.Type, []byte) (int, bool) {
		return 0, false
	})
}

// MarshalWire encodes the message.
func (m *KeyListResponse) MarshalWire() ([]byte, error) {
	var b []byte
	for _, k := range m.Keys {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, k)
	}
	return b, nil
}

// UnmarshalWire decodes the message.
func (m *KeyListResponse) UnmarshalWire(b []byte) error {
	*m = KeyListResponse{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		if num != 1 || typ != protowire.BytesType {
			return 0, false
		}
		k, n := protowire.ConsumeString(b)
		if n >= 0 {
			m.Keys = append(m.Keys, k)
		}
		return n, true
	})
}
