package order

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

// WalkInCustomer is the name recorded on in-store sales without a customer name.
const WalkInCustomer = "Walk-in Customer"

const (
	nameMin, nameMax     = 2, 100
	emailMax             = 255
	phoneDigitsMin       = 10
	phoneMax             = 15
	streetMin, streetMax = 10, 500
	regionMin, regionMax = 2, 100
	postalCodeLen        = 6
	notesMax             = 500
)

// ValidateCustomer checks info for the given channel and returns it with
// surrounding whitespace trimmed. Online orders need full contact and
// shipping details. Offline orders fall back to WalkInCustomer and only
// check the optional fields that are present.
func ValidateCustomer(info Customer, ch Channel) (Customer, error) {
	c := trimCustomer(info)
	fields := make(map[string]string)

	if ch == ChannelOffline && c.Name == "" {
		c.Name = WalkInCustomer
	}
	checkLength(fields, "name", c.Name, nameMin, nameMax)

	switch ch {
	case ChannelOnline:
		checkEmail(fields, c.Email)
		checkPhone(fields, c.Phone)
		checkLength(fields, "address", c.Address.Street, streetMin, streetMax)
		checkLength(fields, "city", c.Address.City, regionMin, regionMax)
		checkLength(fields, "state", c.Address.State, regionMin, regionMax)
		checkPostalCode(fields, c.Address.PostalCode)
	case ChannelOffline:
		if c.Email != "" {
			checkEmail(fields, c.Email)
		}
		if c.Phone != "" {
			checkPhone(fields, c.Phone)
		}
	default:
		fields["channel"] = "must be online or offline"
	}

	if utf8.RuneCountInString(c.Notes) > notesMax {
		fields["notes"] = "must be at most 500 characters"
	}

	if len(fields) > 0 {
		return c, &ValidationError{Fields: fields}
	}
	return c, nil
}

func trimCustomer(c Customer) Customer {
	return Customer{
		Name:  strings.TrimSpace(c.Name),
		Phone: strings.TrimSpace(c.Phone),
		Email: strings.TrimSpace(c.Email),
		Address: Address{
			Street:     strings.TrimSpace(c.Address.Street),
			City:       strings.TrimSpace(c.Address.City),
			State:      strings.TrimSpace(c.Address.State),
			PostalCode: strings.TrimSpace(c.Address.PostalCode),
		},
		Notes: strings.TrimSpace(c.Notes),
	}
}

func checkLength(fields map[string]string, field, v string, lo, hi int) {
	n := utf8.RuneCountInString(v)
	switch {
	case n < lo:
		fields[field] = fmt.Sprintf("must be at least %d characters", lo)
	case n > hi:
		fields[field] = fmt.Sprintf("must be at most %d characters", hi)
	}
}

func checkEmail(fields map[string]string, v string) {
	if len(v) > emailMax {
		fields["email"] = "must be at most 255 characters"
		return
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v || !strings.Contains(v[strings.LastIndex(v, "@")+1:], ".") {
		fields["email"] = "must be a valid email address"
	}
}

// checkPhone accepts digits with common separators ("+", "-", spaces and
// parentheses) and requires at least ten digits.
func checkPhone(fields map[string]string, v string) {
	if len(v) > phoneMax {
		fields["phone"] = "must be at most 15 characters"
		return
	}
	digits := 0
	for _, r := range v {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' || r == '-' || r == ' ' || r == '(' || r == ')':
		default:
			fields["phone"] = "must contain only digits"
			return
		}
	}
	if digits < phoneDigitsMin {
		fields["phone"] = "must have at least 10 digits"
	}
}

func checkPostalCode(fields map[string]string, v string) {
	if len(v) != postalCodeLen {
		fields["pincode"] = "must be exactly 6 digits"
		return
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			fields["pincode"] = "must be exactly 6 digits"
			return
		}
	}
}
