package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"zedcmms/internal/apierror"
	"zedcmms/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// decimal.Decimal is validated as a float so tags like gt=0 work on it.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// bindAndValidate binds the JSON body and runs validator tags. It writes a
// 400 response and returns false on failure.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, apierror.NewValidation(fields))
		return false
	}
	return true
}

// bindQuery binds query parameters into filter, writing a 400 on failure.
func bindQuery(c *gin.Context, filter interface{}) bool {
	if err := c.ShouldBindQuery(filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query: "+err.Error()))
		return false
	}
	return true
}

// paramID parses the :id path parameter, writing a 400 on failure.
func paramID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode("invalid id", "VALIDATION_ERROR",
			map[string]any{"field": "id"}))
		return uuid.Nil, false
	}
	return id, true
}

// actorID is the authenticated user. JWTAuth guarantees claims on protected routes.
func actorID(c *gin.Context) uuid.UUID {
	if claims := middleware.GetClaims(c); claims != nil {
		return claims.UserID
	}
	return uuid.Nil
}

// respondError maps a service error onto the HTTP status table.
// Unclassified errors are logged and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	status, body, ok := apierror.FromError(err)
	if !ok {
		log.Error().Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
	}
	body.RequestID = c.GetString(middleware.RequestIDKey)
	c.JSON(status, body)
}

// sendFile writes a generated document as an attachment.
func sendFile(c *gin.Context, name, contentType string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, contentType, data)
}
