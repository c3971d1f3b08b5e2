package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrProtoVersion,
		ErrBusy,
		ErrNotRunning,
		ErrBadRequest,
		ErrLevelNotFound,
		ErrScript,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestDecodeBase(t *testing.T) {
	m, err := DecodeBase([]byte(`{"type":"RUN","protocol_version":"1.0","level":"x"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != TypeRun || !SupportsVersion(m.ProtocolVersion) {
		t.Fatalf("unexpected base: %+v", m)
	}
	if SupportsVersion("0.9") {
		t.Fatalf("old version should be rejected")
	}
	if _, err := DecodeBase([]byte(`{`)); err == nil {
		t.Fatalf("expected error for truncated json")
	}
	if _, err := DecodeBase([]byte(`{"protocol_version":"1.0"}`)); err != ErrMissingType {
		t.Fatalf("err=%v want ErrMissingType", err)
	}
}

func TestFromClient(t *testing.T) {
	for _, typ := range []string{TypeHello, TypeRun, TypeStop} {
		if !FromClient(typ) {
			t.Fatalf("%s should be a client message", typ)
		}
	}
	for _, typ := range []string{TypeWelcome, TypeAck, TypeTick, TypeResult, TypeError, "OBS"} {
		if FromClient(typ) {
			t.Fatalf("%s should not be a client message", typ)
		}
	}
}
