package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

var jsonNamesOnce sync.Once

// useJSONFieldNames makes gin's validator report fields by their json tag,
// so error details match what the client sent.
func useJSONFieldNames() {
	jsonNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(sf reflect.StructField) string {
			name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
			switch name {
			case "-":
				return ""
			case "":
				return sf.Name
			}
			return name
		})
	})
}

// BindJSON decodes and validates the body into out. On failure it has
// already written the response.
func BindJSON(ctx *gin.Context, out any) bool {
	useJSONFieldNames()

	err := ctx.ShouldBindJSON(out)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondErr(ctx, err)
		return false
	}

	RespondBadRequest(ctx, "Invalid request body", bindErrorDetails(err))
	return false
}

func bindErrorDetails(err error) gin.H {
	var (
		verrs     validator.ValidationErrors
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &verrs):
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   fieldPath(fe.Namespace()),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: validationMessage(fe.Tag(), fe.Param()),
			})
		}
		return gin.H{"fields": fields}

	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return gin.H{"json": "invalid_json_syntax"}

	case errors.Is(err, io.EOF):
		return gin.H{"json": "empty_body"}

	case errors.As(err, &typeErr):
		field := typeErr.Field
		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{{
				Field:   field,
				Rule:    "type",
				Message: fmt.Sprintf("must be of type %s", typeErr.Type),
			}},
		}
	}

	return gin.H{"reason": err.Error()}
}

// fieldPath drops the root struct name from a validator namespace:
// "CreateProductRequest.price" becomes "price".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "gt":
		return "must be greater than " + param
	case "gte":
		return "must be at least " + param
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "uuid", "uuid4":
		return "must be a uuid"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	}
	if param != "" {
		return fmt.Sprintf("failed %s validation (%s)", rule, param)
	}
	return "failed " + rule + " validation"
}
