package model

import (
	"encoding/json"
	"testing"
)

func TestValue_constructorsAndAccessors(t *testing.T) {
	v := Text("alice")
	if v.Kind() != KindText {
		t.Fatalf("Kind() = %v, want KindText", v.Kind())
	}
	if s, ok := v.AsText(); !ok || s != "alice" {
		t.Errorf("AsText() = %q, %v", s, ok)
	}
	if _, ok := v.AsNumber(); ok {
		t.Errorf("AsNumber() on text value should not be ok")
	}

	n := Number(42.5)
	if f, ok := n.AsNumber(); !ok || f != 42.5 {
		t.Errorf("AsNumber() = %v, %v", f, ok)
	}

	b := Bool(true)
	if got, ok := b.AsBool(); !ok || !got {
		t.Errorf("AsBool() = %v, %v", got, ok)
	}

	if !Null().IsNull() {
		t.Errorf("Null().IsNull() = false")
	}
}

func TestValue_IsEmpty(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null(), true},
		{"empty text", Text(""), true},
		{"text", Text("x"), false},
		{"zero number", Number(0), false},
		{"false bool", Bool(false), false},
		{"empty list", TextList(), true},
		{"list", TextList("a"), false},
	}
	for _, tc := range cases {
		if got := tc.v.IsEmpty(); got != tc.want {
			t.Errorf("%s: IsEmpty() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestValue_String(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Null(), ""},
		{Text("hello"), "hello"},
		{Number(3), "3"},
		{Number(3.25), "3.25"},
		{Bool(true), "true"},
		{TextList("a", "b"), "a, b"},
	}
	for _, tc := range cases {
		if got := tc.v.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestValue_TextListCopies(t *testing.T) {
	src := []string{"a", "b"}
	v := TextList(src...)
	src[0] = "mutated"

	list, ok := v.AsList()
	if !ok {
		t.Fatalf("AsList() not ok")
	}
	if list[0] != "a" {
		t.Errorf("TextList did not copy input: got %q", list[0])
	}

	list[1] = "mutated"
	again, _ := v.AsList()
	if again[1] != "b" {
		t.Errorf("AsList did not return a copy: got %q", again[1])
	}
}

func TestValue_jsonRoundTrip(t *testing.T) {
	rec := Record{
		"id":     Text("u-1"),
		"age":    Number(30),
		"active": Bool(true),
		"tags":   TextList("admin", "ops"),
		"note":   Null(),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for key, want := range rec {
		got, ok := back[key]
		if !ok {
			t.Fatalf("key %q missing after round trip", key)
		}
		if !got.Equal(want) {
			t.Errorf("key %q: got %v, want %v", key, got, want)
		}
	}
}

func TestRecord_ID(t *testing.T) {
	rec := Record{"id": Text("order-7")}
	if got := rec.ID(); got != "order-7" {
		t.Errorf("ID() = %q, want %q", got, "order-7")
	}
	if got := (Record{}).ID(); got != "" {
		t.Errorf("ID() on record without id = %q, want empty", got)
	}
}

func TestRecord_Clone(t *testing.T) {
	rec := Record{"name": Text("a")}
	clone := rec.Clone()
	clone["name"] = Text("b")
	if s, _ := rec["name"].AsText(); s != "a" {
		t.Errorf("Clone shares storage with original")
	}
}
