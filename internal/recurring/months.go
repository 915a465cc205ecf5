package recurring

import "fmt"

var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthNumberToName maps 1–12 to the canonical English month name.
func MonthNumberToName(n int) (string, error) {
	if n < 1 || n > 12 {
		return "", fmt.Errorf("month number out of range: %d", n)
	}
	return monthNames[n-1], nil
}

// MonthNameToNumber maps a canonical English month name to 1–12.
func MonthNameToNumber(name string) (int, error) {
	for i, m := range monthNames {
		if m == name {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("unknown month name: %q", name)
}
