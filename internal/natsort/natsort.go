// Package natsort implements the hybrid natural/lexicographic key ordering
// used by the data store: keys of equal length compare byte-wise
// (case-insensitively), keys of different length compare with digit runs
// treated as numeric magnitudes, so "item2" sorts before "item10".
package natsort

import "sort"

// Compare orders a and b under the hybrid comparator. It returns a negative
// number when a sorts first, zero when equal, positive when b sorts first.
func Compare(a, b string) int {
	if len(a) == len(b) {
		for i := 0; i < len(a); i++ {
			ca := lower(a[i])
			cb := lower(b[i])
			if ca != cb {
				return int(ca) - int(cb)
			}
		}
		// Equal ignoring case; fall back to the raw comparison so ordering
		// stays total.
		return rawCompare(a, b)
	}

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca := lower(a[i])
		cb := lower(b[j])

		if isDigit(ca) && isDigit(cb) {
			// Skip leading zeros, then compare the digit runs by length and
			// content; a longer run is a larger magnitude.
			for i < len(a) && a[i] == '0' {
				i++
			}
			for j < len(b) && b[j] == '0' {
				j++
			}
			numStartA, numStartB := i, j
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			lenA := i - numStartA
			lenB := j - numStartB
			if lenA != lenB {
				return lenA - lenB
			}
			for k := 0; k < lenA; k++ {
				if a[numStartA+k] != b[numStartB+k] {
					return int(a[numStartA+k]) - int(b[numStartB+k])
				}
			}
			continue
		}

		if ca != cb {
			return int(ca) - int(cb)
		}
		i++
		j++
	}

	return rawCompare(a, b)
}

// Sort orders keys in place under Compare.
func Sort(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		return Compare(keys[i], keys[j]) < 0
	})
}

func rawCompare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
