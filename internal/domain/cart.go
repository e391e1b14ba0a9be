package domain

import "encoding/json"

// CartLine is one purchasable line in the shopping cart. The ID is assigned
// client-side when the line is created locally and replaced by the backend's
// authoritative id on the next full reload.
type CartLine struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"productId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Spec        string `json:"spec"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Selected    bool   `json:"selected"`
}

// cartLineWire tolerates the backend's older field spelling (`image`) in
// addition to `imageUrl`. Alias resolution happens here, at the boundary,
// so business logic only ever sees ImageURL.
type cartLineWire struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"productId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Spec        string `json:"spec"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
	ImageURL    string `json:"imageUrl"`
	Image       string `json:"image"`
	Selected    bool   `json:"selected"`
}

func (l *CartLine) UnmarshalJSON(data []byte) error {
	var w cartLineWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*l = CartLine{
		ID:          w.ID,
		ProductID:   w.ProductID,
		Name:        w.Name,
		Description: w.Description,
		Spec:        w.Spec,
		Price:       w.Price,
		Quantity:    w.Quantity,
		ImageURL:    w.ImageURL,
		Selected:    w.Selected,
	}
	if l.ImageURL == "" {
		l.ImageURL = w.Image
	}
	return nil
}

// CartLines is the live cart collection. All derived methods tolerate a nil
// receiver so a malformed or missing backend payload never panics a caller.
type CartLines []CartLine

// SelectedCount returns the number of selected lines.
func (c CartLines) SelectedCount() int {
	var n int
	for _, l := range c {
		if l.Selected {
			n++
		}
	}
	return n
}

// TotalQuantity returns the summed quantity of the selected lines.
func (c CartLines) TotalQuantity() int {
	var n int
	for _, l := range c {
		if l.Selected {
			n += l.Quantity
		}
	}
	return n
}

// TotalAmount returns the summed price*quantity of the selected lines (in cents).
func (c CartLines) TotalAmount() int64 {
	var total int64
	for _, l := range c {
		if l.Selected {
			total += l.Price * int64(l.Quantity)
		}
	}
	return total
}

// AllSelected reports whether the cart is non-empty and every line is selected.
func (c CartLines) AllSelected() bool {
	if len(c) == 0 {
		return false
	}
	for _, l := range c {
		if !l.Selected {
			return false
		}
	}
	return true
}

// FindMerge returns the index of the line matching the given product and spec,
// or -1. A cart never holds two lines with the same (productId, spec): adds
// matching an existing line merge into it instead of inserting.
func (c CartLines) FindMerge(productID int64, spec string) int {
	for i := range c {
		if c[i].ProductID == productID && c[i].Spec == spec {
			return i
		}
	}
	return -1
}

// FindID returns the index of the line with the given cart-line id, or -1.
func (c CartLines) FindID(id int64) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// Selected returns a copy of the selected lines. Mutating the copy does not
// touch the live cart.
func (c CartLines) Selected() CartLines {
	out := make(CartLines, 0, len(c))
	for _, l := range c {
		if l.Selected {
			out = append(out, l)
		}
	}
	return out
}

// Clone returns a deep copy of the collection.
func (c CartLines) Clone() CartLines {
	out := make(CartLines, len(c))
	copy(out, c)
	return out
}
