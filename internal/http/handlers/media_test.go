package handlers_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vmarkevych/storefront/internal/domain/product"
	"github.com/vmarkevych/storefront/internal/http/handlers"
	"github.com/vmarkevych/storefront/internal/repo/memory"
)

type mediaFixture struct {
	router  *gin.Engine
	repo    *memory.ProductsRepo
	dir     string
	product product.Product
	changes int
}

func newMediaFixture(t *testing.T) *mediaFixture {
	t.Helper()

	f := &mediaFixture{
		repo: memory.NewProductsRepo(),
		dir:  t.TempDir(),
	}
	f.product = sampleProduct("lamp", time.Now().UTC())
	f.repo.Put(f.product)

	h := handlers.NewMediaHandler(f.repo, handlers.MediaConfig{
		Dir:      f.dir,
		OnChange: func() { f.changes++ },
	}, nil, nil)

	r := gin.New()
	r.POST("/product/:productId/image/upload", h.Upload(product.MediaImage))
	r.POST("/product/:productId/video/upload", h.Upload(product.MediaVideo))
	r.GET("/product/image/:fileName", h.Download(product.MediaImage))
	r.GET("/product/video/:fileName", h.Download(product.MediaVideo))
	f.router = r

	return f
}

type uploadResponse struct {
	FileName string          `json:"fileName"`
	Product  product.Product `json:"product"`
}

func (f *mediaFixture) upload(t *testing.T, kind, productID string, body []byte) (*httptest.ResponseRecorder, uploadResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/product/"+productID+"/"+kind+"/upload", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/octet-stream")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var resp uploadResponse
	if w.Code == http.StatusCreated {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode upload response: %v", err)
		}
	}
	return w, resp
}

func TestMediaUpload_RawImageRoundTrip(t *testing.T) {
	f := newMediaFixture(t)
	payload := []byte("\xff\xd8\xff fake jpeg bytes")

	w, resp := f.upload(t, "image", f.product.ID, payload)
	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if _, err := uuid.Parse(resp.FileName); err != nil {
		t.Fatalf("file name %q is not a uuid", resp.FileName)
	}
	if len(resp.Product.Images) != 1 || resp.Product.Images[0] != resp.FileName {
		t.Fatalf("product images = %v", resp.Product.Images)
	}
	if f.changes != 1 {
		t.Fatalf("OnChange called %d times, want 1", f.changes)
	}

	onDisk, err := os.ReadFile(filepath.Join(f.dir, f.product.ID, "image", resp.FileName+".jpg"))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(onDisk, payload) {
		t.Fatalf("stored bytes differ")
	}

	dl := httptest.NewRecorder()
	f.router.ServeHTTP(dl, httptest.NewRequest(http.MethodGet, "/product/image/"+resp.FileName, nil))
	if dl.Code != http.StatusOK {
		t.Fatalf("download status %d", dl.Code)
	}
	if got := dl.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Fatalf("content type %q", got)
	}
	if !bytes.Equal(dl.Body.Bytes(), payload) {
		t.Fatalf("downloaded bytes differ")
	}
}

func TestMediaUpload_MultipartVideoIsAttachment(t *testing.T) {
	f := newMediaFixture(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "clip.mp4")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("fake mp4"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/product/"+f.product.ID+"/video/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	var resp uploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Product.Videos) != 1 {
		t.Fatalf("product videos = %v", resp.Product.Videos)
	}

	dl := httptest.NewRecorder()
	f.router.ServeHTTP(dl, httptest.NewRequest(http.MethodGet, "/product/video/"+resp.FileName, nil))
	if dl.Code != http.StatusOK {
		t.Fatalf("download status %d", dl.Code)
	}
	if got := dl.Header().Get("Content-Type"); got != "video/mp4" {
		t.Fatalf("content type %q", got)
	}
	if cd := dl.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment") {
		t.Fatalf("content disposition %q", cd)
	}
}

func TestMediaUpload_Rejects(t *testing.T) {
	f := newMediaFixture(t)

	w, _ := f.upload(t, "image", uuid.NewString(), []byte("data"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown product: got status %d, want 404", w.Code)
	}

	w, _ = f.upload(t, "image", f.product.ID, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty body: got status %d, want 400", w.Code)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("other", "x")
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/product/"+f.product.ID+"/image/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing file part: got status %d, want 400", rec.Code)
	}
	if got := decodeError(t, rec).Code; got != "missing_file" {
		t.Fatalf("error code %q, want missing_file", got)
	}

	p, err := f.repo.GetByID(t.Context(), f.product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if len(p.Images) != 0 || f.changes != 0 {
		t.Fatalf("rejected uploads must not attach media: %v", p.Images)
	}
}

func TestMediaDownload_NotFound(t *testing.T) {
	f := newMediaFixture(t)

	for _, path := range []string{
		"/product/image/" + uuid.NewString(),
		"/product/image/not-a-uuid",
		"/product/image/" + uuid.NewString() + ".jpg",
	} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			if w.Code != http.StatusNotFound {
				t.Fatalf("got status %d, want 404", w.Code)
			}
		})
	}

	// a file stored as an image is not reachable as a video
	_, resp := f.upload(t, "image", f.product.ID, []byte("jpeg"))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/product/video/"+resp.FileName, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("cross-kind download: got status %d, want 404", w.Code)
	}
}
