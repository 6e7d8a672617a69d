package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	apierrors "kalpem/internal/errors"
)

// QueryValidator binds query and route parameters into tagged structs and
// validates them with struct tags. Fields are bound by `query:"name"` from
// the URL query and by `param:"name"` from chi route parameters.
type QueryValidator struct {
	validator *validator.Validate
	logger    *slog.Logger
}

// NewQueryValidator creates a new query validator
func NewQueryValidator(logger *slog.Logger) *QueryValidator {
	v := validator.New()

	// Report parameter names, not Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"query", "param"} {
			if name := fld.Tag.Get(tag); name != "" && name != "-" {
				return name
			}
		}
		return ""
	})

	return &QueryValidator{
		validator: v,
		logger:    logger.With(slog.String("component", "query_validator")),
	}
}

// Bind fills dst, a pointer to struct, from the request and validates it.
// Validation failures are returned as an *apierrors.APIError with one
// ValidationError per field.
func (v *QueryValidator) Bind(r *http.Request, dst interface{}) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("bind target must be a pointer to struct, got %T", dst)
	}

	bindFields(r, rv.Elem())

	if err := v.ValidateStruct(dst); err != nil {
		v.logger.DebugContext(r.Context(), "query validation failed",
			slog.String("path", r.URL.Path),
			slog.String("query", r.URL.RawQuery),
		)
		return err
	}
	return nil
}

// ValidateStruct validates a struct and returns validation errors
func (v *QueryValidator) ValidateStruct(s interface{}) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

func bindFields(r *http.Request, sv reflect.Value) {
	st := sv.Type()
	query := r.URL.Query()

	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		fv := sv.Field(i)

		if field.Anonymous && fv.Kind() == reflect.Struct {
			bindFields(r, fv)
			continue
		}
		if !fv.CanSet() {
			continue
		}

		if name := field.Tag.Get("param"); name != "" {
			if fv.Kind() == reflect.String {
				fv.SetString(chi.URLParam(r, name))
			}
			continue
		}

		name := field.Tag.Get("query")
		if name == "" || name == "-" {
			continue
		}

		switch fv.Kind() {
		case reflect.String:
			fv.SetString(strings.TrimSpace(query.Get(name)))
		case reflect.Slice:
			if fv.Type().Elem().Kind() != reflect.String {
				continue
			}
			values := queryValues(query[name])
			fv.Set(reflect.ValueOf(values))
		}
	}
}

// queryValues trims repeated parameter values and drops blanks, so that
// ?method= behaves like an absent parameter.
func queryValues(raw []string) []string {
	var out []string
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	tag := err.Tag()
	param := err.Param()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if err.Kind() == reflect.Slice {
			return fmt.Sprintf("%s accepts at most %s values", field, param)
		}
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
