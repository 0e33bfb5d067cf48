package menu

import (
	"reflect"
	"testing"
)

func TestNaturalLessNumericRuns(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"a2", "a10", true},
		{"a10", "a2", false},
		{"acct-2", "acct-10", true},
		{"acct-10", "acct-10", false},
		{"a", "b", true},
		{"a1b2", "a1b10", true},
		{"a07", "a7", false}, // equal numeric runs, equal remainder
		{"2", "10", true},
		{"alpha", "alpha1", true},
	}
	for _, tc := range cases {
		if got := NaturalLess(tc.a, tc.b); got != tc.want {
			t.Errorf("NaturalLess(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSortAccountsIdempotent(t *testing.T) {
	accounts := []string{"acct-10", "acct-2", "acct-1", "zeta", "acct-2b"}
	want := []string{"acct-1", "acct-2", "acct-2b", "acct-10", "zeta"}

	SortAccounts(accounts)
	if !reflect.DeepEqual(accounts, want) {
		t.Fatalf("first sort = %v, want %v", accounts, want)
	}
	SortAccounts(accounts)
	if !reflect.DeepEqual(accounts, want) {
		t.Fatalf("second sort changed order: %v", accounts)
	}
}
