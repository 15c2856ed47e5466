package idcodec

import (
	"context"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 61, 62, 63, 1000000, maxValue, maxValue - 1}
	for _, v := range cases {
		s := encode(v)
		got, err := decode(s)
		if err != nil {
			t.Fatalf("decode(%q) for v=%d: %v", s, v, err)
		}
		if got != v {
			t.Errorf("round-trip mismatch: encode(%d)=%q, decode back to %d", v, s, got)
		}
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	bad := []string{"", "!!!", "has space", "\t", string(rune(0))}
	for _, s := range bad {
		if _, err := decode(s); err != ErrMalformed {
			t.Errorf("decode(%q) = _, %v; want ErrMalformed", s, err)
		}
	}
}

func TestDecodeRejectsNonCanonicalForm(t *testing.T) {
	// "00" decodes digit-by-digit to the same value as "0" but is not the
	// canonical encoding of that value, so it must be rejected.
	if _, err := decode("00"); err != ErrMalformed {
		t.Errorf("decode(\"00\") = _, %v; want ErrMalformed", err)
	}
}

func TestDecodeRejectsOverflow(t *testing.T) {
	// encode(maxValue) followed by one more digit overflows the 63-bit range.
	overflow := encode(maxValue) + "1"
	if _, err := decode(overflow); err != ErrMalformed {
		t.Errorf("decode(%q) = _, %v; want ErrMalformed", overflow, err)
	}
}

func TestParseProjectIDRoundTrip(t *testing.T) {
	id := ProjectID(424242)
	s := id.String()
	got, err := ParseProjectID(s)
	if err != nil {
		t.Fatalf("ParseProjectID(%q): %v", s, err)
	}
	if got != id {
		t.Errorf("ParseProjectID(%q) = %d; want %d", s, got, id)
	}
}

func TestParseProjectIDRejectsMalformed(t *testing.T) {
	if _, err := ParseProjectID("not-base62!"); err != ErrMalformed {
		t.Errorf("ParseProjectID(bad) = _, %v; want ErrMalformed", err)
	}
}

func TestIsZero(t *testing.T) {
	if !(ProjectID(0)).IsZero() {
		t.Error("ProjectID(0).IsZero() = false; want true")
	}
	if (ProjectID(1)).IsZero() {
		t.Error("ProjectID(1).IsZero() = true; want false")
	}
}

type fakeAllocator struct{ next uint64 }

func (f *fakeAllocator) NextValue(ctx context.Context, kind string) (uint64, error) {
	f.next++
	return f.next, nil
}

func TestAllocateProjectIDUsesAllocator(t *testing.T) {
	a := &fakeAllocator{}
	id, err := AllocateProjectID(context.Background(), a)
	if err != nil {
		t.Fatalf("AllocateProjectID: %v", err)
	}
	if id != 1 {
		t.Errorf("AllocateProjectID = %d; want 1", id)
	}
	id2, _ := AllocateProjectID(context.Background(), a)
	if id2 != 2 {
		t.Errorf("second AllocateProjectID = %d; want 2", id2)
	}
}
