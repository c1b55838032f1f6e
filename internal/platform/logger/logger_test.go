package logger

import (
	"strings"
	"testing"
)

func TestRedactorScrubsSecretsAndHashesIdentity(t *testing.T) {
	r := &redactor{enabled: true, salt: "s"}
	out := r.kvs([]interface{}{
		"authorization", "Bearer abc",
		"user_id", "1234",
		"module_id", "m-1",
		"dangling",
	})
	if len(out) != 7 {
		t.Fatalf("len: want=7 got=%d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("authorization: want=[REDACTED] got=%v", out[1])
	}
	hashed, _ := out[3].(string)
	if !strings.HasPrefix(hashed, "hash:") || len(hashed) != len("hash:")+12 {
		t.Fatalf("user_id: want hash got=%v", out[3])
	}
	if out[5] != "m-1" {
		t.Fatalf("module_id: want=m-1 got=%v", out[5])
	}
	if out[6] != "dangling" {
		t.Fatalf("dangling key dropped: got=%v", out[6])
	}
}

func TestRedactorDisabledPassesThrough(t *testing.T) {
	r := &redactor{enabled: false}
	in := []interface{}{"token", "x"}
	out := r.kvs(in)
	if out[1] != "x" {
		t.Fatalf("want passthrough got=%v", out[1])
	}
}

func TestRedactorJWTLikeValues(t *testing.T) {
	r := &redactor{enabled: true}
	jwtish := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0In0.sig"
	out := r.kvs([]interface{}{"detail", jwtish})
	if out[1] != "[REDACTED]" {
		t.Fatalf("want jwt redacted got=%v", out[1])
	}
}
