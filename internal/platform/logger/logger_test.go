package logger

import "testing"

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"db_password", "hunter2",
		"dataset_id", 7,
		"conn", "postgres://app:pw@localhost:5432/tagledger",
		"client_ip", "10.0.0.1",
	})
	if len(out) != 8 {
		t.Fatalf("len: want=8 got=%d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("password: want=[REDACTED] got=%v", out[1])
	}
	if out[3] != 7 {
		t.Fatalf("dataset_id: want=7 got=%v", out[3])
	}
	if out[5] != "[REDACTED]" {
		t.Fatalf("dsn string: want=[REDACTED] got=%v", out[5])
	}
	if s, ok := out[7].(string); !ok || len(s) != len("hash:")+12 {
		t.Fatalf("client_ip: want hashed got=%v", out[7])
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"a", 1, "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("odd kv: got=%v", out)
	}
}

func TestLooksLikeDSN(t *testing.T) {
	cases := map[string]bool{
		"postgres://u:p@h/db":      true,
		"redis://localhost:6379":   false,
		"https://example.com/path": false,
		"plain":                    false,
	}
	for in, want := range cases {
		if got := looksLikeDSN(in); got != want {
			t.Fatalf("looksLikeDSN(%q): want=%v got=%v", in, want, got)
		}
	}
}
