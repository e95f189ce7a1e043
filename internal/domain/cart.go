package domain

import "time"

// CartItem is one line of a cart. Product name and unit price are snapshotted
// at add time so totals stay computable without a catalog round trip.
type CartItem struct {
	ProductID   int64     `bson:"product_id" json:"product_id"`
	ProductName string    `bson:"product_name" json:"product_name"`
	UnitPrice   float64   `bson:"unit_price" json:"unit_price"`
	Quantity    int       `bson:"quantity" json:"quantity"`
	AddedAt     time.Time `bson:"added_at" json:"added_at"`
}

// Cart holds at most one item per product id. Totals are always derived from
// the items on read and never stored alongside them.
type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"-"`
	UserID    int64      `bson:"user_id" json:"user_id"`
	Items     []CartItem `bson:"items" json:"items"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

// AddItem merges the item into the cart: an existing line for the same product
// has its quantity incremented, otherwise a new line is appended. The incoming
// price snapshot wins on merge.
func (c *Cart) AddItem(item CartItem) {
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity += item.Quantity
			c.Items[i].ProductName = item.ProductName
			c.Items[i].UnitPrice = item.UnitPrice
			return
		}
	}
	c.Items = append(c.Items, item)
}

// SetQuantity sets the line quantity to exactly quantity. A quantity of zero
// or less removes the line.
func (c *Cart) SetQuantity(productID int64, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(productID)
		return
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			return
		}
	}
}

// RemoveItem deletes the line for productID. Removing an absent product is a
// no-op.
func (c *Cart) RemoveItem(productID int64) {
	for i, item := range c.Items {
		if item.ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// TotalQuantity is the sum of line quantities, recomputed on every call.
func (c *Cart) TotalQuantity() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// TotalPrice is the sum of unit price times quantity over all lines,
// recomputed on every call.
func (c *Cart) TotalPrice() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}
