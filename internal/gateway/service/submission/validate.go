package submission

import (
	"strings"

	"instrumentsync/internal/gateway/repository/instrument"
)

// Input is what a caller submits. Values are trimmed before validation and
// storage.
type Input struct {
	PreRisk string `json:"pre_risk"`
	OnRisk  string `json:"on_risk"`
	CUSIP   string `json:"cusip"`
	ISIN    string `json:"isin"`
}

func (in Input) fields() instrument.Fields {
	return instrument.Fields{
		PreRisk: strings.TrimSpace(in.PreRisk),
		OnRisk:  strings.TrimSpace(in.OnRisk),
		CUSIP:   strings.TrimSpace(in.CUSIP),
		ISIN:    strings.TrimSpace(in.ISIN),
	}
}

// Validate checks that every field is present. With strict set, CUSIP and
// ISIN check digits are verified as well. It has no side effects.
func Validate(in Input, strict bool) error {
	fields := in.fields()
	var missing []string
	for _, f := range fieldOrder {
		if f.valueOf(fields) == "" {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing, Reason: "required"}
	}
	if !strict {
		return nil
	}
	if !ValidCUSIP(fields.CUSIP) {
		return &ValidationError{Fields: []string{string(FieldCUSIP)}, Reason: "invalid cusip"}
	}
	if !ValidISIN(fields.ISIN) {
		return &ValidationError{Fields: []string{string(FieldISIN)}, Reason: "invalid isin"}
	}
	return nil
}

// ValidCUSIP checks length, alphabet and the modulus-10 check digit.
func ValidCUSIP(s string) bool {
	s = strings.ToUpper(s)
	if len(s) != 9 {
		return false
	}
	sum := 0
	for i := 0; i < 8; i++ {
		v, ok := cusipValue(s[i])
		if !ok {
			return false
		}
		if i%2 == 1 {
			v *= 2
		}
		sum += v/10 + v%10
	}
	check := s[8]
	if check < '0' || check > '9' {
		return false
	}
	return int(check-'0') == (10-sum%10)%10
}

func cusipValue(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10, true
	case c == '*':
		return 36, true
	case c == '@':
		return 37, true
	case c == '#':
		return 38, true
	}
	return 0, false
}

// ValidISIN checks the country prefix, alphabet and the Luhn check digit
// computed over the letter-expanded digits.
func ValidISIN(s string) bool {
	s = strings.ToUpper(s)
	if len(s) != 12 {
		return false
	}
	if !isLetter(s[0]) || !isLetter(s[1]) {
		return false
	}
	check := s[11]
	if check < '0' || check > '9' {
		return false
	}
	digits := make([]byte, 0, 22)
	for i := 0; i < 11; i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, c-'0')
		case isLetter(c):
			v := int(c-'A') + 10
			digits = append(digits, byte(v/10), byte(v%10))
		default:
			return false
		}
	}
	sum := 0
	for i := len(digits) - 1; i >= 0; i-- {
		v := int(digits[i])
		if (len(digits)-1-i)%2 == 0 {
			v *= 2
		}
		sum += v/10 + v%10
	}
	return int(check-'0') == (10-sum%10)%10
}

func isLetter(c byte) bool {
	return c >= 'A' && c <= 'Z'
}
