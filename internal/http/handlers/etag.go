package handlers

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RespondJSONWithETag writes payload with a content hash ETag and answers
// 304 when the client already holds that version. Catalog responses depend on
// the caller's session, so they are marked private.
func RespondJSONWithETag(ctx *gin.Context, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	etag := contentETag(body)
	ctx.Header("ETag", etag)
	ctx.Header("Cache-Control", "private, no-cache")

	if etagMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.Data(status, "application/json; charset=utf-8", body)
}

func contentETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + base64.RawURLEncoding.EncodeToString(sum[:16]) + `"`
}

// etagMatches applies the weak comparison If-None-Match calls for.
func etagMatches(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}

	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == want {
			return true
		}
	}
	return false
}
