package joincode

import "testing"

func TestGenerate_FixedLengthDigits(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := Generate()
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if len(code) != Length {
			t.Fatalf("want %d digits, got %q", Length, code)
		}
		for _, ch := range code {
			if ch < '0' || ch > '9' {
				t.Fatalf("non-digit %q in code %q", ch, code)
			}
		}
	}
}
