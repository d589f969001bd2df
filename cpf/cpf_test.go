package cpf

import "testing"

func TestParseValid(t *testing.T) {
	c, err := Parse("529.982.247-25")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Canonical() != "52998224725" {
		t.Fatalf("canonical = %q, want 52998224725", c.Canonical())
	}
	if c.Formatted() != "529.982.247-25" {
		t.Fatalf("formatted = %q", c.Formatted())
	}
}

func TestParseInvalidChecksum(t *testing.T) {
	if _, err := Parse("11111111111"); err != ErrInvalidFormat {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestParseWrongLength(t *testing.T) {
	if _, err := Parse("123"); err != ErrInvalidFormat {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestMaskedNeverLeaksDigits(t *testing.T) {
	c, err := Parse("52998224725")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	masked := c.Masked()
	if masked == c.Canonical() {
		t.Fatalf("masked form must not equal canonical digits")
	}
	want := "529.***.***-25"
	if masked != want {
		t.Fatalf("masked = %q, want %q", masked, want)
	}
	if c.String() != masked {
		t.Fatalf("String() must return the masked form")
	}
}

func TestEqual(t *testing.T) {
	a, _ := Parse("529.982.247-25")
	b, _ := Parse("52998224725")
	if !a.Equal(b) {
		t.Fatalf("expected equal CPFs from different formatting")
	}
}

func TestHashIsDeterministicAndSaltSensitive(t *testing.T) {
	c, _ := Parse("52998224725")
	h1 := c.Hash("salt-a")
	h2 := c.Hash("salt-a")
	h3 := c.Hash("salt-b")
	if h1 != h2 {
		t.Fatalf("hash must be deterministic for the same salt")
	}
	if h1 == h3 {
		t.Fatalf("hash must depend on the salt")
	}
}

func TestRoundTripFromRaw(t *testing.T) {
	raw := "529.982.247-25"
	c, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Canonical() != "52998224725" {
		t.Fatalf("CPF.fromRaw(x).canonical must equal digits-only(x) for valid x")
	}
}
