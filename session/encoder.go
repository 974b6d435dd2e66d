package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
)

const (
	// CurrentSchemaVersion is written by Encode.
	CurrentSchemaVersion   uint8 = 2
	sessionFormatVersionV1 uint8 = 1

	maxValues     = 64
	maxValueBytes = 1<<16 - 1
)

// Encode renders s in the current schema version. Values are written in
// sorted name order so equal sessions encode to equal bytes.
//
// v2 layout: version | userID (u8 len) | createdAt i64 | expiresAt i64 |
// count u16 | count * (name u8 len, value u16 len).
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(CurrentSchemaVersion)

	if len(s.UserID) > 255 {
		return nil, errors.New("userID too long")
	}
	buf.WriteByte(byte(len(s.UserID)))
	buf.WriteString(s.UserID)

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	if len(s.Values) > maxValues {
		return nil, errors.New("too many session values")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(s.Values))); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(s.Values))
	for name := range s.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := s.Values[name]
		if name == "" || len(name) > 255 {
			return nil, fmt.Errorf("invalid session value name %q", name)
		}
		if len(value) > maxValueBytes {
			return nil, fmt.Errorf("session value %q too large", name)
		}
		buf.WriteByte(byte(len(name)))
		buf.WriteString(name)
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(value))); err != nil {
			return nil, err
		}
		buf.WriteString(value)
	}

	return buf.Bytes(), nil
}

// Decode parses a record written by Encode. v1 records predate named values
// and carry the user id and timestamps only.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != CurrentSchemaVersion && version != sessionFormatVersionV1 {
		return nil, fmt.Errorf("unsupported session schema version %d", version)
	}

	s := &Session{SchemaVersion: version}

	userID, err := readString8(reader)
	if err != nil {
		return nil, err
	}
	s.UserID = userID

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, err
	}

	if version == sessionFormatVersionV1 {
		if reader.Len() != 0 {
			return nil, errors.New("trailing session bytes")
		}
		return s, nil
	}

	var count uint16
	if err := binary.Read(reader, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	if count > maxValues {
		return nil, errors.New("too many session values")
	}

	if count > 0 {
		s.Values = make(map[string]string, count)
	}
	for i := 0; i < int(count); i++ {
		name, err := readString8(reader)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, errors.New("empty session value name")
		}

		var n uint16
		if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		value := make([]byte, n)
		if _, err := io.ReadFull(reader, value); err != nil {
			return nil, err
		}
		s.Values[name] = string(value)
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing session bytes")
	}
	return s, nil
}

func readString8(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
