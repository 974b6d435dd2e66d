package session

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func TestEncodeDeterministic(t *testing.T) {
	a := &Session{UserID: "u", Values: map[string]string{"b": "2", "a": "1"}, CreatedAt: 1, ExpiresAt: 2}
	b := &Session{UserID: "u", Values: map[string]string{"a": "1", "b": "2"}, CreatedAt: 1, ExpiresAt: 2}

	ea, err := Encode(a)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	eb, err := Encode(b)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(ea, eb) {
		t.Fatal("expected identical encodings regardless of map order")
	}
}

func TestDecodeRejectsUnsupportedSchemaVersion(t *testing.T) {
	_, err := Decode([]byte{99})
	if err == nil || !strings.Contains(err.Error(), "unsupported session schema version") {
		t.Fatalf("expected unsupported schema version error, got %v", err)
	}
}

func TestDecodeLegacyV1(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(sessionFormatVersionV1)
	buf.WriteByte(3)
	buf.WriteString("u-1")
	_ = binary.Write(&buf, binary.BigEndian, int64(1700000000))
	_ = binary.Write(&buf, binary.BigEndian, int64(1700003600))

	s, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("decode v1: %v", err)
	}
	if s.SchemaVersion != sessionFormatVersionV1 || s.UserID != "u-1" || s.ExpiresAt != 1700003600 {
		t.Fatalf("unexpected v1 decode: %+v", s)
	}
	if len(s.Values) != 0 {
		t.Fatalf("expected no values, got %v", s.Values)
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	enc, err := Encode(&Session{UserID: "u", CreatedAt: 1, ExpiresAt: 2})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(append(enc, 0)); err == nil {
		t.Fatal("expected trailing byte error")
	}
}

func TestEncodeLimits(t *testing.T) {
	if _, err := Encode(&Session{UserID: strings.Repeat("x", 256)}); err == nil {
		t.Fatal("expected long user id error")
	}
	if _, err := Encode(&Session{Values: map[string]string{"": "v"}}); err == nil {
		t.Fatal("expected empty name error")
	}
	if _, err := Encode(&Session{Values: map[string]string{"k": strings.Repeat("v", maxValueBytes+1)}}); err == nil {
		t.Fatal("expected oversize value error")
	}
}
