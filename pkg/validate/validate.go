// Package validate checks request input structs against `validate` tags.
//
// Rules are comma-separated; the first failing rule per field wins:
//
//	required      value must not be zero/blank
//	nullable      skip the remaining rules when the value is empty or a nil pointer
//	email         address shape
//	url           absolute http(s) URL
//	id            opaque record id (24-hex ObjectID or UUID)
//	min=N / max=N string length in characters, or numeric bound
//	gt=N / gte=N / lt=N / lte=N
//	in=a|b|c      value must be one of the listed items
//
// Field names in the error map come from the `json` tag, then the `form`
// tag, then the lower-cased Go field name. Pointer fields are dereferenced,
// which lets partial-update inputs use *string/*int64 with `nullable`.
//
//	type SignupInput struct {
//	    FirstName string `json:"firstName" validate:"required,min=3"`
//	    Email     string `json:"email"     validate:"required,email"`
//	}
package validate

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Errors maps a field name to its first failing rule's message.
type Errors map[string]string

// Struct validates every tagged field of v. An empty map means v is valid.
func Struct(v interface{}) Errors {
	errs := Errors{}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return errs
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return errs
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		tag := sf.Tag.Get("validate")
		if tag == "" || !sf.IsExported() {
			continue
		}

		name := FieldName(sf)
		value := rv.Field(i)
		rules := strings.Split(tag, ",")

		if contains(rules, "nullable") && isEmpty(value) {
			continue
		}
		value = deref(value)

		for _, rule := range rules {
			key, param, _ := strings.Cut(strings.TrimSpace(rule), "=")
			if key == "nullable" || key == "" {
				continue
			}
			check, ok := registry[key]
			if !ok {
				continue
			}
			if msg := check(name, param, value); msg != "" {
				errs[name] = msg
				break
			}
		}
	}

	return errs
}

// HasErrors reports whether errs carries at least one failure.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

// FieldName resolves the external name of a struct field.
func FieldName(f reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return strings.ToLower(f.Name)
}

// ─── Rules ────────────────────────────────────────────────────────────────────

type ruleFunc func(field, param string, v reflect.Value) string

var (
	emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	hexIDRE = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
	uuidRE  = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

var registry = map[string]ruleFunc{
	"required": func(field, _ string, v reflect.Value) string {
		if isEmpty(v) {
			return fmt.Sprintf("The %s field is required.", field)
		}
		return ""
	},
	"email": func(field, _ string, v reflect.Value) string {
		if !emailRE.MatchString(text(v)) {
			return fmt.Sprintf("The %s must be a valid email address.", field)
		}
		return ""
	},
	"url": func(field, _ string, v reflect.Value) string {
		u, err := url.ParseRequestURI(text(v))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Sprintf("The %s must be a valid URL.", field)
		}
		return ""
	},
	"id": func(field, _ string, v reflect.Value) string {
		if s := text(v); !hexIDRE.MatchString(s) && !uuidRE.MatchString(s) {
			return fmt.Sprintf("The %s is not a valid id.", field)
		}
		return ""
	},
	"min": func(field, param string, v reflect.Value) string {
		n := number(param)
		if isNumeric(v) {
			if toFloat(v) < n {
				return fmt.Sprintf("The %s must be at least %s.", field, param)
			}
		} else if float64(len([]rune(text(v)))) < n {
			return fmt.Sprintf("The %s must be at least %s characters.", field, param)
		}
		return ""
	},
	"max": func(field, param string, v reflect.Value) string {
		n := number(param)
		if isNumeric(v) {
			if toFloat(v) > n {
				return fmt.Sprintf("The %s must not be greater than %s.", field, param)
			}
		} else if float64(len([]rune(text(v)))) > n {
			return fmt.Sprintf("The %s must not exceed %s characters.", field, param)
		}
		return ""
	},
	"gt":  compare(func(a, b float64) bool { return a > b }, "greater than"),
	"gte": compare(func(a, b float64) bool { return a >= b }, "greater than or equal to"),
	"lt":  compare(func(a, b float64) bool { return a < b }, "less than"),
	"lte": compare(func(a, b float64) bool { return a <= b }, "less than or equal to"),
	"in": func(field, param string, v reflect.Value) string {
		s := text(v)
		for _, allowed := range strings.Split(param, "|") {
			if s == strings.TrimSpace(allowed) {
				return ""
			}
		}
		return fmt.Sprintf("The selected %s is invalid.", field)
	},
}

func compare(ok func(a, b float64) bool, phrase string) ruleFunc {
	return func(field, param string, v reflect.Value) string {
		if !ok(toFloat(v), number(param)) {
			return fmt.Sprintf("The %s must be %s %s.", field, phrase, param)
		}
		return ""
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func contains(rules []string, target string) bool {
	for _, r := range rules {
		if strings.TrimSpace(r) == target {
			return true
		}
	}
	return false
}

func deref(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr && !v.IsNil() {
		v = v.Elem()
	}
	return v
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Bool:
		return false
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	}
	return false
}

func isNumeric(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	return number(text(v))
}

func text(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	if v.Kind() == reflect.String {
		return v.String()
	}
	return fmt.Sprintf("%v", v.Interface())
}

func number(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
