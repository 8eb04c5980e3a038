package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"

	"healthtrack-api/internal/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidation makes validator errors report JSON field names and
// turns on strict JSON decoding for every bound request.
func RegisterValidation() {
	binding.EnableDecoderDisallowUnknownFields = true
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	}
}

// respondError writes {"error": msg} with the status carried by err and
// logs the full cause.
func respondError(c *gin.Context, log *slog.Logger, err error) {
	status := apperrors.Status(err)
	msg := apperrors.Message(err, "Error interno del servidor.")
	if status >= 500 {
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "status", status, "err", err)
	} else {
		log.Debug("request rejected", "method", c.Request.Method, "path", c.FullPath(), "status", status, "err", err)
	}
	c.JSON(status, gin.H{"error": msg})
}

// bindJSON decodes the body into req and reports a 400 naming the
// offending field. It returns false when a response was already written.
func bindJSON(c *gin.Context, log *slog.Logger, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, log, translateBindError(err))
		return false
	}
	return true
}

func translateBindError(err error) error {
	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
		verrs     validator.ValidationErrors
	)
	switch {
	case errors.Is(err, io.EOF):
		return apperrors.NewBadRequestError("El cuerpo de la petición es requerido.").Wrap(err)
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			return apperrors.NewBadRequestError("El cuerpo de la petición tiene un formato inválido.").Wrap(err)
		}
		return apperrors.NewBadRequestError("El campo '" + field + "' tiene un tipo inválido.").Wrap(err)
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return apperrors.NewBadRequestError("JSON inválido.").Wrap(err)
	case errors.As(err, &verrs) && len(verrs) > 0:
		return apperrors.NewBadRequestError(validationMessage(verrs[0])).Wrap(err)
	}
	if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return apperrors.NewBadRequestError("Campo no permitido: " + strings.Trim(field, `"`) + ".").Wrap(err)
	}
	return apperrors.NewBadRequestError("Petición inválida.").Wrap(err)
}

func validationMessage(fe validator.FieldError) string {
	field := "El campo '" + fe.Field() + "'"
	switch fe.Tag() {
	case "required":
		return field + " es requerido."
	case "email":
		return field + " debe ser un email válido."
	case "min":
		return field + " debe tener al menos " + fe.Param() + " elementos o caracteres."
	case "gte":
		return field + " debe ser mayor o igual a " + fe.Param() + "."
	case "oneof":
		return field + " debe ser uno de: " + strings.ReplaceAll(fe.Param(), " ", ", ") + "."
	}
	return field + " es inválido."
}
