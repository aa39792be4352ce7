// Package validation checks request bodies before they reach a handler.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Kind is the JSON type a field must carry.
type Kind int

const (
	String Kind = iota
	Integer
	Number
	Bool
	// Date is a calendar date written as YYYY-MM-DD.
	Date
)

// DateLayout is the wire format of Date fields.
const DateLayout = time.DateOnly

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Number:
		return "number"
	case Bool:
		return "boolean"
	case Date:
		return "date"
	default:
		return "string"
	}
}

// Rule constrains one body field. Tag uses go-playground/validator syntax and
// is evaluated against the value after it has been coerced to Kind. A field
// is required unless Tag starts with "omitempty".
type Rule struct {
	Field string
	Kind  Kind
	Tag   string
}

func (r Rule) optional() bool {
	return r.Tag == "omitempty" || strings.HasPrefix(r.Tag, "omitempty,")
}

// FieldError describes one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Errors is every rule that failed for a request.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e Errors) Details() any { return []FieldError(e) }

// Validator wraps a validator.Validate configured to report JSON field names.
// It also satisfies echo.Validator.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Validate implements echo.Validator. The returned error is Errors.
func (v *Validator) Validate(i any) error {
	err := v.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   structPath(fe.Namespace()),
			Rule:    fe.Tag(),
			Message: message(fe.Tag(), fe.Param(), fe.Kind()),
		})
	}
	return out
}

// structPath drops the root struct name from a validator namespace.
func structPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// Fields checks body against rules in order and returns the coerced values
// of every field named by a rule. Unknown fields are dropped. All failures
// are collected before returning.
func (v *Validator) Fields(body map[string]any, rules []Rule) (map[string]any, error) {
	out := make(map[string]any, len(rules))
	var errs Errors

	for _, r := range rules {
		raw, present := body[r.Field]
		if !present || raw == nil {
			if !r.optional() {
				errs = append(errs, FieldError{Field: r.Field, Rule: "required", Message: "is required"})
			}
			continue
		}

		val, ok := coerce(raw, r.Kind)
		if !ok {
			errs = append(errs, FieldError{Field: r.Field, Rule: r.Kind.String(), Message: kindMessage(r.Kind)})
			continue
		}

		if r.Tag != "" {
			if err := v.v.Var(val, r.Tag); err != nil {
				var verrs validator.ValidationErrors
				if !errors.As(err, &verrs) {
					return nil, err
				}
				for _, fe := range verrs {
					errs = append(errs, FieldError{
						Field:   r.Field,
						Rule:    fe.Tag(),
						Message: message(fe.Tag(), fe.Param(), fe.Kind()),
					})
				}
				continue
			}
		}

		out[r.Field] = val
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func kindMessage(k Kind) string {
	if k == Date {
		return "must be a date formatted as YYYY-MM-DD"
	}
	name := k.String()
	if strings.ContainsRune("aeiou", rune(name[0])) {
		return "must be an " + name
	}
	return "must be a " + name
}

func coerce(raw any, kind Kind) (any, bool) {
	switch kind {
	case String:
		s, ok := raw.(string)
		return s, ok
	case Integer:
		switch n := raw.(type) {
		case json.Number:
			i, err := n.Int64()
			return i, err == nil
		case string:
			i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
			return i, err == nil
		}
	case Number:
		switch n := raw.(type) {
		case json.Number:
			f, err := n.Float64()
			return f, err == nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			return f, err == nil
		}
	case Date:
		s, ok := raw.(string)
		if !ok {
			return nil, false
		}
		if _, err := time.Parse(DateLayout, s); err != nil {
			return nil, false
		}
		return s, true
	case Bool:
		switch b := raw.(type) {
		case bool:
			return b, true
		case json.Number:
			switch b.String() {
			case "0":
				return false, true
			case "1":
				return true, true
			}
		case string:
			parsed, err := strconv.ParseBool(b)
			return parsed, err == nil
		}
	}
	return nil, false
}

func message(tag, param string, kind reflect.Kind) string {
	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if kind == reflect.String {
			return fmt.Sprintf("must be at least %s characters", param)
		}
		if kind == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", param)
		}
		return "must be at least " + param
	case "max":
		if kind == reflect.String {
			return fmt.Sprintf("must be at most %s characters", param)
		}
		return "must be at most " + param
	case "gt":
		return "must be greater than " + param
	case "latitude":
		return "must be a latitude between -90 and 90"
	case "longitude":
		return "must be a longitude between -180 and 180"
	case "datetime":
		return "must be a date formatted as " + param
	case "oneof":
		return "must be one of: " + param
	default:
		return "failed the " + tag + " rule"
	}
}

// FieldsKey is the echo context key Body stores validated fields under.
const FieldsKey = "validated_fields"

// Body decodes the JSON request body, validates it against rules and stores
// the coerced fields for the handler. Failures answer 400 with every
// offending field listed.
func Body(v *Validator, rules ...Rule) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			body, err := decode(c.Request().Body)
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					return he
				}
				return echo.NewHTTPError(http.StatusBadRequest, "malformed JSON body").SetInternal(err)
			}

			fields, err := v.Fields(body, rules)
			if err != nil {
				var verrs Errors
				if errors.As(err, &verrs) {
					return echo.NewHTTPError(http.StatusBadRequest, "invalid input data").SetInternal(verrs)
				}
				return err
			}

			c.Set(FieldsKey, fields)
			return next(c)
		}
	}
}

func decode(r io.Reader) (map[string]any, error) {
	body := map[string]any{}
	if r == nil {
		return body, nil
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	return body, nil
}

// FieldsFrom returns the fields stored by Body.
func FieldsFrom(c echo.Context) map[string]any {
	fields, _ := c.Get(FieldsKey).(map[string]any)
	return fields
}
