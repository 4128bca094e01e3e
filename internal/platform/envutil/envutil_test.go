package envutil

import (
	"testing"
	"time"
)

func TestInt(t *testing.T) {
	t.Setenv("TL_TEST_INT", "42")
	if got := Int("TL_TEST_INT", 1); got != 42 {
		t.Fatalf("Int: want=42 got=%d", got)
	}
	t.Setenv("TL_TEST_INT", "nope")
	if got := Int("TL_TEST_INT", 1); got != 1 {
		t.Fatalf("Int fallback: want=1 got=%d", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("TL_TEST_BOOL", "on")
	if !Bool("TL_TEST_BOOL", false) {
		t.Fatalf("Bool: want=true")
	}
	t.Setenv("TL_TEST_BOOL", "maybe")
	if !Bool("TL_TEST_BOOL", true) {
		t.Fatalf("Bool fallback: want default true")
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("TL_TEST_DUR", "90")
	if got := Duration("TL_TEST_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("Duration seconds: want=90s got=%s", got)
	}
	t.Setenv("TL_TEST_DUR", "250ms")
	if got := Duration("TL_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("Duration: want=250ms got=%s", got)
	}
}

func TestList(t *testing.T) {
	t.Setenv("TL_TEST_LIST", " a, ,b ,c")
	got := List("TL_TEST_LIST", nil)
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("List: got=%v", got)
	}
}
