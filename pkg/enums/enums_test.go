package enums

import "testing"

func TestParsePaymentStatus(t *testing.T) {
	for _, raw := range []string{"P", "C", "F"} {
		status, err := ParsePaymentStatus(raw)
		if err != nil {
			t.Fatalf("ParsePaymentStatus(%q) unexpected error: %v", raw, err)
		}
		if !status.IsValid() || status.String() != raw {
			t.Fatalf("unexpected status %q", status)
		}
	}
	if _, err := ParsePaymentStatus("paid"); err == nil {
		t.Fatal("expected unknown payment status to fail")
	}
}

func TestParseMembership(t *testing.T) {
	m, err := ParseMembership("G")
	if err != nil || m != MembershipGold {
		t.Fatalf("expected gold, got %q err=%v", m, err)
	}
	if Membership("X").IsValid() {
		t.Fatal("X is not a membership tier")
	}
	if _, err := ParseMembership(""); err == nil {
		t.Fatal("expected empty membership to fail")
	}
}
