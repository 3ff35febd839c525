package links

import "testing"

func TestSanitizeSlug(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"tax-docs", "tax-docs"},
		{"Tax-Docs", "tax-docs"},
		{"Tax Docs", "taxdocs"},
		{"  My_Slug!  ", "myslug"},
		{"UPPER-123", "upper-123"},
		{"über-slug", "ber-slug"},
		{"", ""},
	}

	for _, c := range cases {
		if got := SanitizeSlug(c.raw); got != c.want {
			t.Errorf("SanitizeSlug(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}

func TestValidateSlug(t *testing.T) {
	if err := ValidateSlug("valid-slug"); err != nil {
		t.Errorf("Expected valid-slug to pass, got %v", err)
	}

	if err := ValidateSlug("ab"); err == nil {
		t.Error("Expected too-short slug to fail")
	}

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	if err := ValidateSlug(string(long)); err == nil {
		t.Error("Expected too-long slug to fail")
	}

	for _, reserved := range []string{"api", "admin", "dashboard", "foldly"} {
		if err := ValidateSlug(reserved); err == nil {
			t.Errorf("Expected reserved slug %q to fail", reserved)
		}
	}
}
