package cart

import "tappinpay/internal/domain"

// Command is one of the closed set of cart mutations below.
type Command interface{ isCommand() }

type AddItem struct{ Product domain.Product }

type AddItemOnce struct{ Product domain.Product }

type RemoveItem struct{ ID string }

type UpdateQuantity struct {
	ID       string
	Quantity int
}

type ClearCart struct{}

type LoadCart struct{ Items []domain.CartItem }

func (AddItem) isCommand()        {}
func (AddItemOnce) isCommand()    {}
func (RemoveItem) isCommand()     {}
func (UpdateQuantity) isCommand() {}
func (ClearCart) isCommand()      {}
func (LoadCart) isCommand()       {}

// Reduce applies cmd to items and returns the next item slice. The input is never
// modified; when a command is a no-op the same slice is returned.
func Reduce(items []domain.CartItem, cmd Command) []domain.CartItem {
	switch c := cmd.(type) {
	case AddItem:
		if i := indexOf(items, c.Product.ID); i >= 0 {
			next := clone(items)
			next[i].Quantity++
			return next
		}
		return append(clone(items), domain.CartItem{Product: c.Product, Quantity: 1})

	case AddItemOnce:
		if indexOf(items, c.Product.ID) >= 0 {
			return items
		}
		return append(clone(items), domain.CartItem{Product: c.Product, Quantity: 1})

	case RemoveItem:
		next := make([]domain.CartItem, 0, len(items))
		for _, it := range items {
			if it.ID != c.ID {
				next = append(next, it)
			}
		}
		return next

	case UpdateQuantity:
		q := max(c.Quantity, 0)
		next := make([]domain.CartItem, 0, len(items))
		for _, it := range items {
			if it.ID == c.ID {
				it.Quantity = q
			}
			if it.Quantity > 0 {
				next = append(next, it)
			}
		}
		return next

	case ClearCart:
		return []domain.CartItem{}

	case LoadCart:
		return dedupe(c.Items)
	}
	return items
}

func indexOf(items []domain.CartItem, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func clone(items []domain.CartItem) []domain.CartItem {
	next := make([]domain.CartItem, len(items), len(items)+1)
	copy(next, items)
	return next
}

// dedupe keeps the first line per id and drops non-positive quantities from a loaded snapshot.
func dedupe(items []domain.CartItem) []domain.CartItem {
	next := make([]domain.CartItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it.ID == "" || it.Quantity < 1 || seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		next = append(next, it)
	}
	return next
}
