package types

import "testing"

func TestDespecializeTuple(t *testing.T) {
	tup := Tuple([]*Type{Primitive(KindU32), Primitive(KindBool)})
	d := Despecialize(tup)
	if d.Kind != KindRecord {
		t.Fatalf("got kind %v, want record", d.Kind)
	}
	if len(d.Fields) != 2 || d.Fields[0].Label != "0" || d.Fields[1].Label != "1" {
		t.Fatalf("unexpected fields: %+v", d.Fields)
	}
}

func TestDespecializeOption(t *testing.T) {
	opt := Option(Primitive(KindU8))
	d := Despecialize(opt)
	if d.Kind != KindVariant || len(d.Cases) != 2 {
		t.Fatalf("got %+v", d)
	}
	if d.Cases[0].Label != "none" || d.Cases[0].Type != nil {
		t.Fatalf("none case wrong: %+v", d.Cases[0])
	}
	if d.Cases[1].Label != "some" || d.Cases[1].Type.Kind != KindU8 {
		t.Fatalf("some case wrong: %+v", d.Cases[1])
	}
}

func TestDespecializeResult(t *testing.T) {
	res := Result(Primitive(KindU32), Primitive(KindString))
	d := Despecialize(res)
	if d.Kind != KindVariant || d.Cases[0].Label != "ok" || d.Cases[1].Label != "error" {
		t.Fatalf("got %+v", d)
	}
}

func TestDespecializeEnumDropsPayload(t *testing.T) {
	e := Enum([]string{"red", "green", "blue"})
	d := Despecialize(e)
	if d.Kind != KindVariant || len(d.Cases) != 3 {
		t.Fatalf("got %+v", d)
	}
	for _, c := range d.Cases {
		if c.Type != nil {
			t.Fatalf("enum case %q should have nil payload, got %+v", c.Label, c.Type)
		}
	}
}

func TestCacheMemoizesByIdentity(t *testing.T) {
	c := NewCache()
	tup := Tuple([]*Type{Primitive(KindU32)})
	a := c.Despecialize(tup)
	b := c.Despecialize(tup)
	if a != b {
		t.Fatalf("expected the same cached pointer on repeat lookup")
	}
}
