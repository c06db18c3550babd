package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vmarkevych/storefront/internal/apperr"
	"github.com/vmarkevych/storefront/internal/domain/product"
	"github.com/vmarkevych/storefront/internal/observability"
	"github.com/vmarkevych/storefront/internal/utils"
)

var errMissingFile = apperr.Validation("missing_file", `multipart field "file" is required`)

type MediaCatalog interface {
	GetByID(ctx context.Context, id string) (product.Product, error)
	AttachMedia(ctx context.Context, id string, kind product.MediaKind, fileName string) (product.Product, error)
	FindByMedia(ctx context.Context, kind product.MediaKind, fileName string) (product.Product, error)
}

type MediaConfig struct {
	// Dir is the media root; files land in <Dir>/<productId>/<kind>/<name>.<ext>.
	Dir string
	// OnChange runs after a product gained a file.
	OnChange func()
}

type MediaHandler struct {
	repo MediaCatalog
	cfg  MediaConfig
	prom *observability.Prom
	log  *slog.Logger
}

func NewMediaHandler(repo MediaCatalog, cfg MediaConfig, prom *observability.Prom, log *slog.Logger) *MediaHandler {
	if log == nil {
		log = slog.Default()
	}
	return &MediaHandler{repo: repo, cfg: cfg, prom: prom, log: log}
}

func (h *MediaHandler) path(productID string, kind product.MediaKind, fileName string) string {
	return filepath.Join(h.cfg.Dir, productID, string(kind), fileName+"."+kind.Extension())
}

// Upload stores the request body, raw or as multipart field "file", and
// appends the new file name to the product.
func (h *MediaHandler) Upload(kind product.MediaKind) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		productID := ctx.Param("productId")
		rctx := ctx.Request.Context()

		// the product must exist before anything touches the disk
		if _, err := h.repo.GetByID(rctx, productID); err != nil {
			RespondErr(ctx, err)
			return
		}

		src, err := uploadSource(ctx)
		if err != nil {
			RespondErr(ctx, err)
			return
		}
		defer src.Close()

		fileName := uuid.NewString()
		dst := h.path(productID, kind, fileName)
		logAttrs := []any{"kind", kind, "product_id", productID, "file", fileName, "direction", "upload"}

		h.log.InfoContext(rctx, "media_transfer started", logAttrs...)
		start := time.Now()

		n, err := writeFile(dst, src)
		if err != nil {
			h.log.ErrorContext(rctx, "media_transfer failed", append(logAttrs, "err", err)...)
			RespondErr(ctx, err)
			return
		}
		if n == 0 {
			_ = os.Remove(dst)
			RespondBadRequest(ctx, "Upload body is empty", nil)
			return
		}

		p, err := h.repo.AttachMedia(rctx, productID, kind, fileName)
		if err != nil {
			_ = os.Remove(dst)
			h.log.ErrorContext(rctx, "media_transfer failed", append(logAttrs, "err", err)...)
			RespondErr(ctx, err)
			return
		}

		h.prom.AddMediaBytes(string(kind), "upload", n)
		h.log.InfoContext(rctx, "media_transfer finished",
			append(logAttrs, "bytes", n, "latency_ms", time.Since(start).Milliseconds())...)

		if h.cfg.OnChange != nil {
			h.cfg.OnChange()
		}

		ctx.JSON(http.StatusCreated, gin.H{
			"fileName": fileName,
			"product":  p,
		})
	}
}

// Download streams a stored file back. Videos are sent as attachments.
func (h *MediaHandler) Download(kind product.MediaKind) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		fileName := ctx.Param("fileName")
		rctx := ctx.Request.Context()

		// names are always uuids; anything else could walk the tree
		if !utils.IsUUID(fileName) {
			RespondErr(ctx, product.ErrMediaNotFound)
			return
		}

		p, err := h.repo.FindByMedia(rctx, kind, fileName)
		if err != nil {
			RespondErr(ctx, err)
			return
		}

		src := h.path(p.ID, kind, fileName)
		info, err := os.Stat(src)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				h.log.WarnContext(rctx, "media file missing on disk", "kind", kind, "product_id", p.ID, "file", fileName)
				RespondErr(ctx, product.ErrMediaNotFound)
				return
			}
			RespondErr(ctx, err)
			return
		}

		h.log.InfoContext(rctx, "media_transfer started",
			"kind", kind, "product_id", p.ID, "file", fileName, "direction", "download", "bytes", info.Size())

		if kind == product.MediaVideo {
			ctx.Header("Content-Type", "video/mp4")
			ctx.FileAttachment(src, fileName+"."+kind.Extension())
		} else {
			ctx.Header("Content-Type", "image/jpeg")
			ctx.File(src)
		}

		h.prom.AddMediaBytes(string(kind), "download", info.Size())
	}
}

// uploadSource picks the multipart "file" part when the request is a form,
// otherwise the raw body.
func uploadSource(ctx *gin.Context) (io.ReadCloser, error) {
	mediaType, _, _ := mime.ParseMediaType(ctx.GetHeader("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		return ctx.Request.Body, nil
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, errMissingFile
	}
	return fh.Open()
}

func writeFile(dst string, src io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("create media dir: %w", err)
	}

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create media file: %w", err)
	}

	n, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return 0, err
	}
	return n, nil
}
