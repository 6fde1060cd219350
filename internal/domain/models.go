package domain

// Categories that prefix every product id (e.g. FOOD001).
var Categories = []string{"FOOD", "ELEC", "CLTH", "BOOK", "HOME", "SPRT"}

type Product struct {
	ID          string  `json:"id" validate:"required,productid"`
	Name        string  `json:"name" validate:"required,max=80"`
	Price       float64 `json:"price" validate:"gte=0"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Category    string  `json:"category,omitempty"`
	Stock       *int    `json:"stock,omitempty" validate:"omitempty,gte=0"`
}

// CartItem is a product copied into the cart plus its quantity.
type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

func (it CartItem) Subtotal() float64 { return it.Price * float64(it.Quantity) }

type Order struct {
	ID            string     `json:"id" validate:"required"`
	Items         []CartItem `json:"items" validate:"required,min=1"`
	Total         float64    `json:"total" validate:"gte=0"`
	Tax           float64    `json:"tax" validate:"gte=0"`
	FinalTotal    float64    `json:"finalTotal" validate:"gte=0"`
	PaymentMethod string     `json:"paymentMethod" validate:"required"`
	Status        string     `json:"status" validate:"required"`
	Currency      string     `json:"currency"`
	TransactionID string     `json:"transactionId" validate:"required"`
	PaymentTime   string     `json:"paymentTime"`
}

// Quote is the price breakdown shown before payment.
type Quote struct {
	Subtotal   float64 `json:"subtotal"`
	Tax        float64 `json:"tax"`
	FinalTotal float64 `json:"finalTotal"`
	ItemCount  int     `json:"itemCount"`
}
