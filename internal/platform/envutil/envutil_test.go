package envutil

import (
	"testing"
	"time"
)

func TestParsers(t *testing.T) {
	t.Setenv("RJ_INT", "7")
	t.Setenv("RJ_BAD_INT", "x")
	t.Setenv("RJ_FLOAT", "0.25")
	t.Setenv("RJ_BOOL", "off")
	t.Setenv("RJ_DUR", "1500ms")
	t.Setenv("RJ_DUR_SECS", "3")
	t.Setenv("RJ_LIST", " a, ,b ")

	if got := Int("RJ_INT", 1); got != 7 {
		t.Fatalf("Int: want=7 got=%d", got)
	}
	if got := Int("RJ_BAD_INT", 1); got != 1 {
		t.Fatalf("Int fallback: want=1 got=%d", got)
	}
	if got := Float("RJ_FLOAT", 0); got != 0.25 {
		t.Fatalf("Float: want=0.25 got=%v", got)
	}
	if got := Bool("RJ_BOOL", true); got {
		t.Fatalf("Bool: want=false got=%v", got)
	}
	if got := Bool("RJ_MISSING", true); !got {
		t.Fatalf("Bool default: want=true got=%v", got)
	}
	if got := Duration("RJ_DUR", 0); got != 1500*time.Millisecond {
		t.Fatalf("Duration: want=1.5s got=%v", got)
	}
	if got := Duration("RJ_DUR_SECS", 0); got != 3*time.Second {
		t.Fatalf("Duration secs: want=3s got=%v", got)
	}
	if got := List("RJ_LIST", nil); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("List: want=[a b] got=%v", got)
	}
	if got := String("RJ_MISSING", "def"); got != "def" {
		t.Fatalf("String default: want=def got=%s", got)
	}
}
