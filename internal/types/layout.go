package types

import "github.com/component-model/canon-abi/internal/abierr"

// Alignment returns the linear-memory alignment of a value of type t.
func Alignment(t *Type) uint32 {
	switch Despecialize(t).Kind {
	case KindBool, KindS8, KindU8:
		return 1
	case KindS16, KindU16:
		return 2
	case KindS32, KindU32, KindFloat32, KindChar, KindString, KindList:
		return 4
	case KindS64, KindU64, KindFloat64:
		return 8
	case KindRecord:
		return maxAlignmentFields(Despecialize(t).Fields)
	case KindVariant:
		d := Despecialize(t)
		a := maxAlignmentCases(d.Cases)
		if da := Alignment(discriminantType(d.Cases)); da > a {
			a = da
		}
		return a
	case KindFlags:
		return alignmentFlags(len(Despecialize(t).Labels))
	case KindOwn, KindBorrow:
		return 4 // represented as an i32 handle
	}
	abierr.Raisef("bad-type", "alignment: unhandled kind %v", t.Kind)
	return 0
}

func maxAlignmentFields(fields []Field) uint32 {
	a := uint32(1)
	for _, f := range fields {
		if fa := Alignment(f.Type); fa > a {
			a = fa
		}
	}
	return a
}

func maxAlignmentCases(cases []Case) uint32 {
	a := uint32(1)
	for _, c := range cases {
		if c.Type == nil {
			continue
		}
		if fa := Alignment(c.Type); fa > a {
			a = fa
		}
	}
	return a
}

// discriminantType picks the narrowest of u8/u16/u32 that can hold n
// distinct case indices, by ceil(log2(n)/8).
func discriminantType(cases []Case) *Type {
	n := len(cases)
	abierr.RaiseIf(n == 0 || n >= (1<<32), "bad-discriminant-count")
	switch bitsForDiscriminant(n) {
	case 0, 1:
		return Primitive(KindU8)
	case 2:
		return Primitive(KindU16)
	default:
		return Primitive(KindU32)
	}
}

// bitsForDiscriminant computes ceil(log2(n)/8) without floating point.
func bitsForDiscriminant(n int) int {
	if n <= 1 {
		return 0
	}
	bits := 0
	for v := n - 1; v > 0; v >>= 1 {
		bits++
	}
	return (bits + 7) / 8
}

func alignmentFlags(n int) uint32 {
	switch {
	case n <= 8:
		return 1
	case n <= 16:
		return 2
	default:
		return 4
	}
}

// AlignTo rounds ptr up to the next multiple of alignment.
func AlignTo(ptr, alignment uint32) uint32 {
	return (ptr + alignment - 1) / alignment * alignment
}

// Size returns the linear-memory footprint of a value of type t.
func Size(t *Type) uint32 {
	d := Despecialize(t)
	switch d.Kind {
	case KindBool, KindS8, KindU8:
		return 1
	case KindS16, KindU16:
		return 2
	case KindS32, KindU32, KindFloat32, KindChar:
		return 4
	case KindS64, KindU64, KindFloat64:
		return 8
	case KindString, KindList:
		return 8
	case KindRecord:
		return sizeRecord(d)
	case KindVariant:
		return sizeVariant(d)
	case KindFlags:
		return sizeFlags(len(d.Labels))
	case KindOwn, KindBorrow:
		return 4
	}
	abierr.Raisef("bad-type", "size: unhandled kind %v", t.Kind)
	return 0
}

func sizeRecord(d *Type) uint32 {
	s := uint32(0)
	for _, f := range d.Fields {
		s = AlignTo(s, Alignment(f.Type))
		s += Size(f.Type)
	}
	return AlignTo(s, Alignment(d))
}

func sizeVariant(d *Type) uint32 {
	s := Size(discriminantType(d.Cases))
	s = AlignTo(s, maxAlignmentCases(d.Cases))
	cs := uint32(0)
	for _, c := range d.Cases {
		if c.Type == nil {
			continue
		}
		if sz := Size(c.Type); sz > cs {
			cs = sz
		}
	}
	s += cs
	return AlignTo(s, Alignment(d))
}

func sizeFlags(n int) uint32 {
	switch {
	case n <= 8:
		return 1
	case n <= 16:
		return 2
	default:
		return 4 * numI32Flags(n)
	}
}

func numI32Flags(n int) uint32 {
	return (uint32(n) + 31) / 32
}

// DiscriminantType exposes discriminantType for the codec packages, which
// need it to load/store the tag itself.
func DiscriminantType(cases []Case) *Type { return discriminantType(cases) }

// VariantPayloadOffset returns the byte offset of the payload area within
// a stored/loaded variant, i.e. the aligned point right after the
// discriminant.
func VariantPayloadOffset(cases []Case) uint32 {
	s := Size(discriminantType(cases))
	return AlignTo(s, maxAlignmentCases(cases))
}

// CaseLabelWithDefaults resolves a defaults-to chain into the pipe-joined
// label a variant case reports to its consumer ("label|alias|...").
func CaseLabelWithDefaults(c Case, cases []Case) string {
	label := c.Label
	for c.DefaultsTo != "" {
		next, ok := FindCase(c.DefaultsTo, cases)
		abierr.RaiseIf(!ok, "bad-defaults-to")
		label += "|" + next.Label
		c = next
	}
	return label
}

// FindCase looks a case up by label.
func FindCase(label string, cases []Case) (Case, bool) {
	for _, c := range cases {
		if c.Label == label {
			return c, true
		}
	}
	return Case{}, false
}
