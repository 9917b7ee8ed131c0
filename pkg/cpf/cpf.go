// Package cpf validates Brazilian CPF identification numbers.
package cpf

// Strip removes every non-digit character from the input.
func Strip(raw string) string {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			out = append(out, raw[i])
		}
	}
	return string(out)
}

// Valid reports whether the input is a checksum-valid CPF. Formatting
// characters are ignored; the number must carry exactly 11 digits and
// degenerate sequences of a single repeated digit are rejected even when
// the arithmetic would accept them.
func Valid(raw string) bool {
	digits := Strip(raw)
	if len(digits) != 11 {
		return false
	}

	allSame := true
	for i := 1; i < 11; i++ {
		if digits[i] != digits[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}

	var d1, d2 int
	for i := 0; i < 9; i++ {
		num := int(digits[i] - '0')
		d1 += num * (10 - i)
		d2 += num * (11 - i)
	}

	check1 := d1 % 11
	if check1 < 2 {
		check1 = 0
	} else {
		check1 = 11 - check1
	}

	d2 += check1 * 2
	check2 := d2 % 11
	if check2 < 2 {
		check2 = 0
	} else {
		check2 = 11 - check2
	}

	return int(digits[9]-'0') == check1 && int(digits[10]-'0') == check2
}
