package menu

import "sort"

// NaturalLess compares two strings with embedded integer runs comparing
// numerically, so "acct-2" sorts before "acct-10".
func NaturalLess(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		da, db := isDigit(ca), isDigit(cb)
		switch {
		case da && db:
			// Compare the full digit runs numerically. Leading zeros are
			// skipped so "007" and "7" compare equal within the run.
			si, sj := i, j
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			na, nb := trimZeros(a[si:i]), trimZeros(b[sj:j])
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
		case da != db:
			return da
		default:
			if ca != cb {
				return ca < cb
			}
			i++
			j++
		}
	}
	return len(a)-i < len(b)-j
}

// SortAccounts orders account aliases naturally, in place. The sort is
// stable, so repeated application is idempotent.
func SortAccounts(accounts []string) {
	sort.SliceStable(accounts, func(i, j int) bool {
		return NaturalLess(accounts[i], accounts[j])
	})
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func trimZeros(s string) string {
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return s
}
