package product

import (
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreateProductRequest) Product {
	now := time.Now().UTC()

	return Product{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Images:      []string{},
		Videos:      []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a copy that shares no slices with p.
func (p Product) Clone() Product {
	out := p
	out.Images = append([]string{}, p.Images...)
	out.Videos = append([]string{}, p.Videos...)
	return out
}
