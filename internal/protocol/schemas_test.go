package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"craftlevel.ai/internal/protocol"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// instance round-trips v through JSON so the validator sees plain values.
func instance(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestSchemas_ValidateSamples(t *testing.T) {
	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	var hello any
	_ = json.Unmarshal([]byte(`{"type":"HELLO","protocol_version":"1.0","client_name":"cli"}`), &hello)
	validate(compile(t, "hello.schema.json"), hello)

	var run any
	_ = json.Unmarshal([]byte(`{
	  "type":"RUN",
	  "protocol_version":"1.0",
	  "req_id":"R1",
	  "level":"creeper_field",
	  "script":"craft.explode(\"creeper\")",
	  "realtime":true
	}`), &run)
	validate(compile(t, "run.schema.json"), run)

	var errMsg any
	_ = json.Unmarshal([]byte(`{"type":"ERROR","protocol_version":"1.0","code":"E_LEVEL_NOT_FOUND","message":"no such level"}`), &errMsg)
	validate(compile(t, "error.schema.json"), errMsg)
}

func TestSchemas_ValidateServerMessages(t *testing.T) {
	digest := strings.Repeat("ab", 32)

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       "S1",
		TickRateHz:      20,
		Levels:          []protocol.LevelRef{{Name: "pen", Width: 5, Height: 5, DirectControl: true}},
	}
	tick := protocol.TickMsg{
		Type:            protocol.TypeTick,
		ProtocolVersion: protocol.Version,
		RunID:           "run-1",
		Tick:            3,
		Digest:          digest,
		Events:          []protocol.Event{{Type: "WhenSpawned", TargetType: "sheep", TargetID: "1"}},
		Effects:         []protocol.Effect{{Kind: "animation", Name: "walk", EntityID: "1", Pos: [2]int{1, 2}, Facing: "east"}, {Kind: "lighting"}},
	}
	result := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		RunID:           "run-1",
		Success:         true,
		Reason:          "solved",
		Tick:            40,
		Score:           3,
		Commands:        []protocol.CommandCount{{Verb: "explode", Type: "creeper", Repeat: true, Count: 1}},
	}
	errMsg := protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            protocol.ErrScript,
		Message:         "script: boom",
	}

	cases := []struct {
		schema string
		msg    any
	}{
		{"welcome.schema.json", welcome},
		{"tick.schema.json", tick},
		{"result.schema.json", result},
		{"error.schema.json", errMsg},
	}
	for _, tc := range cases {
		if err := compile(t, tc.schema).Validate(instance(t, tc.msg)); err != nil {
			t.Fatalf("%s: %v", tc.schema, err)
		}
	}
}

func TestSchemas_RejectBadMessages(t *testing.T) {
	bad := protocol.TickMsg{Type: protocol.TypeTick, ProtocolVersion: protocol.Version, RunID: "r", Digest: "nothex"}
	if err := compile(t, "tick.schema.json").Validate(instance(t, bad)); err == nil {
		t.Fatalf("expected bad digest to fail validation")
	}
	var run any
	_ = json.Unmarshal([]byte(`{"type":"RUN","protocol_version":"1.0","req_id":"R1"}`), &run)
	if err := compile(t, "run.schema.json").Validate(run); err == nil {
		t.Fatalf("expected RUN without level to fail validation")
	}
}
