package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vmarkevych/storefront/internal/cache"
	"github.com/vmarkevych/storefront/internal/domain/product"
	"github.com/vmarkevych/storefront/internal/utils"
)

const (
	defaultProductsLimit = 20
	maxProductsLimit     = 100
)

type ProductCatalog interface {
	Create(ctx context.Context, req product.CreateProductRequest) (product.Product, error)
	GetByID(ctx context.Context, id string) (product.Product, error)
	List(ctx context.Context, f product.ListFilter) ([]product.Product, bool, error)
}

// ProductsPage is the list payload; it is what the cache stores and what the
// ETag is computed over.
type ProductsPage struct {
	Items      []product.Product `json:"items"`
	Count      int               `json:"count"`
	NextCursor *string           `json:"nextCursor"`
	HasMore    bool              `json:"hasMore"`
}

type ProductsHandler struct {
	repo  ProductCatalog
	cache *cache.Cache[ProductsPage]
}

func NewProductsHandler(repo ProductCatalog, listCache *cache.Cache[ProductsPage]) *ProductsHandler {
	return &ProductsHandler{repo: repo, cache: listCache}
}

func (h *ProductsHandler) CreateProduct(ctx *gin.Context) {
	var req product.CreateProductRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	p, err := h.repo.Create(cctx, req)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	h.Invalidate()

	ctx.JSON(http.StatusCreated, p)
}

func (h *ProductsHandler) ListProducts(ctx *gin.Context) {
	limit := defaultProductsLimit
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxProductsLimit {
			RespondBadRequest(ctx, "Invalid query parameters", gin.H{
				"fields": []FieldError{{
					Field:   "limit",
					Rule:    "range",
					Param:   "1-" + strconv.Itoa(maxProductsLimit),
					Message: "must be between 1 and " + strconv.Itoa(maxProductsLimit),
				}},
			})
			return
		}
		limit = n
	}

	filter := product.ListFilter{Limit: limit}

	rawCursor := ctx.Query("cursor")
	if rawCursor != "" {
		cur, err := utils.DecodeProductCursor(rawCursor)
		if err != nil {
			RespondBadRequest(ctx, "Invalid cursor", nil)
			return
		}
		filter.AfterCreatedAt = &cur.CreatedAt
		filter.AfterID = cur.ID
	}

	key := utils.BuildProductsListCacheKey(limit, rawCursor)
	if h.cache != nil {
		if page, ok := h.cache.Get(key); ok {
			ctx.Header("X-Cache", "HIT")
			RespondJSONWithETag(ctx, http.StatusOK, page)
			return
		}
	}

	items, hasMore, err := h.repo.List(ctx.Request.Context(), filter)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	page := ProductsPage{Items: items, Count: len(items), HasMore: hasMore}
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		next, err := utils.EncodeProductCursor(last.CreatedAt, last.ID)
		if err != nil {
			RespondInternal(ctx, "Could not build cursor")
			return
		}
		page.NextCursor = &next
	}

	if h.cache != nil {
		h.cache.Set(key, page)
		ctx.Header("X-Cache", "MISS")
	}

	RespondJSONWithETag(ctx, http.StatusOK, page)
}

func (h *ProductsHandler) GetProductByID(ctx *gin.Context) {
	p, err := h.repo.GetByID(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, p)
}

// Invalidate drops cached pages after any catalog write.
func (h *ProductsHandler) Invalidate() {
	if h.cache != nil {
		h.cache.Clear()
	}
}
