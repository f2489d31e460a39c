package vm

// addOverflows reports whether x+y overflows a signed machine word, by
// the sign-analysis rule spec.md §4.4 specifies for PLUS: both operands
// negative but the result positive, or both positive but the result
// negative.
func addOverflows(x, y, result int) bool {
	return (x < 0 && y < 0 && result > 0) || (x > 0 && y > 0 && result < 0)
}

// mulOverflows reports whether x*y overflows a signed machine word using
// the same sign-analysis rule the VM applies to PLUS, reused for MUL
// (spec.md §4.4: "Overflow on PLUS and MUL is detected by sign analysis
// of operands vs result").
func mulOverflows(x, y, result int) bool {
	if x == 0 || y == 0 {
		return false
	}
	sameSign := (x < 0) == (y < 0)
	if sameSign {
		return result < 0
	}
	return result > 0
}
