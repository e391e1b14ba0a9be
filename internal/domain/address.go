package domain

import "fmt"

// Address is a shipping destination in the shopper's address book.
type Address struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Province  string `json:"province"`
	City      string `json:"city"`
	District  string `json:"district"`
	Detail    string `json:"detail"`
	Postcode  string `json:"postcode,omitempty"`
	IsDefault bool   `json:"isDefault"`
}

// Receiver renders the address as the single display line stored on orders.
func (a *Address) Receiver() string {
	return fmt.Sprintf("%s %s %s %s", a.Province, a.City, a.District, a.Detail)
}

// AddressBook holds a user's addresses. At most one may be the default.
type AddressBook []Address

// Default returns the default address, or the first one when none is marked,
// or nil for an empty book.
func (b AddressBook) Default() *Address {
	for i := range b {
		if b[i].IsDefault {
			return &b[i]
		}
	}
	if len(b) > 0 {
		return &b[0]
	}
	return nil
}

// Resolve picks the shipping address for an order: the explicit id when given
// and present, else the default, else the first. Returns nil when the book is
// empty or the explicit id is unknown and no fallback exists.
func (b AddressBook) Resolve(id int64) *Address {
	if id != 0 {
		for i := range b {
			if b[i].ID == id {
				return &b[i]
			}
		}
	}
	return b.Default()
}

// FindID returns the index of the address with the given id, or -1.
func (b AddressBook) FindID(id int64) int {
	for i := range b {
		if b[i].ID == id {
			return i
		}
	}
	return -1
}

// SetDefault marks the given address as the default and unsets every other in
// one pass, so two defaults are never observable. Reports whether the id was
// found.
func (b AddressBook) SetDefault(id int64) bool {
	idx := b.FindID(id)
	if idx == -1 {
		return false
	}
	for i := range b {
		b[i].IsDefault = i == idx
	}
	return true
}
