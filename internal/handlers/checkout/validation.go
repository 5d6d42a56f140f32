package checkout

import (
	"errors"
	"regexp"
)

var (
	phonePattern   = regexp.MustCompile(`^[0-9]{10}$`)
	pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)
)

// ShippingInfo is the snapshot copied onto the order; it never references a
// stored address row.
type ShippingInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

// Validate is the single gate before an order is written: every field
// non-empty, phone exactly 10 digits, pincode exactly 6 digits.
func (s *ShippingInfo) Validate() error {
	switch {
	case s.Name == "":
		return errors.New("name is required")
	case s.Email == "":
		return errors.New("email is required")
	case s.Phone == "":
		return errors.New("phone is required")
	case s.Address == "":
		return errors.New("address is required")
	case s.City == "":
		return errors.New("city is required")
	case s.State == "":
		return errors.New("state is required")
	case s.Pincode == "":
		return errors.New("pincode is required")
	}
	if !phonePattern.MatchString(s.Phone) {
		return errors.New("phone must be exactly 10 digits")
	}
	if !pincodePattern.MatchString(s.Pincode) {
		return errors.New("pincode must be exactly 6 digits")
	}
	return nil
}
