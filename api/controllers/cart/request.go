package cart

import "github.com/google/uuid"

type addItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"min=1,max=1000"`
}

// A quantity of zero removes the line.
type setQuantityRequest struct {
	Quantity int `json:"quantity" validate:"min=0,max=1000"`
}
