package product

import (
	"time"

	"github.com/vmarkevych/storefront/internal/apperr"
)

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Images      []string  `json:"image"`
	Videos      []string  `json:"video"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

func (k MediaKind) IsValid() bool {
	return k == MediaImage || k == MediaVideo
}

// Extension is the file extension every stored file of this kind gets.
func (k MediaKind) Extension() string {
	if k == MediaVideo {
		return "mp4"
	}
	return "jpg"
}

var (
	ErrNotFound      = apperr.New(apperr.KindNotFound, "product_not_found", "product not found")
	ErrMediaNotFound = apperr.New(apperr.KindNotFound, "media_not_found", "media file not found")
)

// with pointers if optional, it will be nil
type ListFilter struct {
	Limit          int
	AfterCreatedAt *time.Time
	AfterID        string
}

type CreateProductRequest struct {
	Name        string  `json:"name" binding:"required,min=2,max=200"`
	Description string  `json:"description" binding:"required,max=2000"`
	Price       float64 `json:"price" binding:"required,gt=0"`
}
