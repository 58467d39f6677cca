package commerce

// Product is one catalog entry as listed in the menu.
type Product struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductDetail is the full catalog record for one product.
type ProductDetail struct {
	ID          string
	Name        string
	Description string
	// PriceAmount is the price in minor currency units.
	PriceAmount int
	MainImageID string
}

// CartItem is one line of a customer's cart.
type CartItem struct {
	ID        string
	ProductID string
	Name      string
	Quantity  int
	// Amount is the line total in minor currency units.
	Amount int
}

// Restaurant is one registered service point from the restaurant flow.
type Restaurant struct {
	ID      string  `json:"id"`
	Address string  `json:"restaurant-address"`
	Alias   string  `json:"restaurant-alias"`
	Lon     float64 `json:"restaurant-lon"`
	Lat     float64 `json:"restaurant-lat"`
	// CourierChatID is the chat notified when a delivery order is paid.
	CourierChatID int64 `json:"restaurant-courier"`
}
