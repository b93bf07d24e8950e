package protocol

import (
	"encoding/json"
	"testing"
)

func TestEncode_EnvelopeShape(t *testing.T) {
	data, err := Encode(TargetConsoleLog, "hello\n")
	if err != nil {
		t.Fatal(err)
	}
	want := `{"message":"hello\n","target":"console/log"}`
	if string(data) != want {
		t.Errorf("Encode = %s, want %s", data, want)
	}
}

func TestEncode_Welcome(t *testing.T) {
	data, err := Encode(TargetWelcome, Welcome{Addr: "1.2.3.4:5", Role: RoleUser, Name: "Anonymous"})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"message":{"addr":"1.2.3.4:5","role":"User","name":"Anonymous"},"target":"auth/welcome"}`
	if string(data) != want {
		t.Errorf("Encode = %s, want %s", data, want)
	}
}

func TestEncode_UnknownRoleFails(t *testing.T) {
	if _, err := Encode(TargetWelcome, Welcome{Role: Role(7)}); err == nil {
		t.Error("encoding an unknown role should fail")
	}
}

func TestRole_Text(t *testing.T) {
	var w Welcome
	if err := json.Unmarshal([]byte(`{"role":"Admin"}`), &w); err != nil {
		t.Fatal(err)
	}
	if w.Role != RoleAdmin {
		t.Errorf("Role = %v, want Admin", w.Role)
	}
	if err := json.Unmarshal([]byte(`{"role":"root"}`), &w); err == nil {
		t.Error("unknown role should not decode")
	}
	for _, s := range []string{"admin", "ADMIN", "Admin"} {
		if r, err := ParseRole(s); err != nil || r != RoleAdmin {
			t.Errorf("ParseRole(%q) = %v, %v", s, r, err)
		}
	}
}

func TestEncode_StringTable(t *testing.T) {
	data, err := Encode(TargetDebugTable, StringTable{Name: "players", Values: []string{"a"}})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"message":{"name":"players","values":["a"]},"target":"debug/table"}`
	if string(data) != want {
		t.Errorf("Encode = %s, want %s", data, want)
	}
}
