// Package bind decodes and validates an HTTP request body into a struct.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/shashiranjanraj/coursemart/config"
	"github.com/shashiranjanraj/coursemart/pkg/validate"
)

// ErrBodyTooLarge is returned when the request body exceeds its limit.
var ErrBodyTooLarge = errors.New("bind: request body too large")

func maxBodyBytes() int64 {
	n, err := strconv.ParseInt(config.Get("MAX_BODY_BYTES", "4194304"), 10, 64)
	if err != nil || n <= 0 {
		return 4 << 20
	}
	return n
}

func maxUploadBytes() int64 {
	n, err := strconv.ParseInt(config.Get("MAX_UPLOAD_BYTES", "33554432"), 10, 64)
	if err != nil || n <= 0 {
		return 32 << 20
	}
	return n
}

// JSON decodes r.Body as JSON into dest and runs validation.
// Returns (errs, nil) on validation failures and (nil, err) when the body is
// malformed or too large.
func JSON(r *http.Request, dest interface{}) (errs map[string]string, err error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes())

	if err = json.NewDecoder(r.Body).Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("%w (max %d bytes)", ErrBodyTooLarge, maxErr.Limit)
		}
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if errs = validate.Struct(dest); validate.HasErrors(errs) {
		return errs, nil
	}
	return nil, nil
}

// Form fills dest from a urlencoded or multipart body using `form` tags and
// runs validation. Supported field kinds: string, int/int64, bool and
// pointers to them; an absent field leaves a pointer nil. A value that does
// not parse into its field's kind is reported as a validation error.
func Form(r *http.Request, dest interface{}) (errs map[string]string, err error) {
	if err = parse(r); err != nil {
		return nil, err
	}

	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("bind: Form needs a pointer to a struct, got %T", dest)
	}
	rv = rv.Elem()
	rt := rv.Type()

	errs = map[string]string{}
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		name, _, _ := strings.Cut(sf.Tag.Get("form"), ",")
		if name == "" || name == "-" || !sf.IsExported() {
			continue
		}
		values, present := r.Form[name]
		if !present || len(values) == 0 {
			continue
		}
		if perr := assign(rv.Field(i), strings.TrimSpace(values[0])); perr != nil {
			errs[name] = fmt.Sprintf("The %s field has an invalid value.", name)
		}
	}

	for k, v := range validate.Struct(dest) {
		if _, seen := errs[k]; !seen {
			errs[k] = v
		}
	}
	if validate.HasErrors(errs) {
		return errs, nil
	}
	return nil, nil
}

// Files returns the uploaded parts under field in the order the client sent
// them. A request without a multipart body yields nil.
func Files(r *http.Request, field string) ([]*multipart.FileHeader, error) {
	if err := parse(r); err != nil {
		return nil, err
	}
	if r.MultipartForm == nil {
		return nil, nil
	}
	return r.MultipartForm.File[field], nil
}

func parse(r *http.Request) error {
	if r.Form != nil {
		return nil
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes())
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return fmt.Errorf("%w (max %d bytes)", ErrBodyTooLarge, maxErr.Limit)
			}
			return fmt.Errorf("invalid multipart body: %w", err)
		}
		return nil
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes())
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("invalid form body: %w", err)
	}
	return nil
}

func assign(field reflect.Value, raw string) error {
	if field.Kind() == reflect.Ptr {
		elem := reflect.New(field.Type().Elem())
		if err := assign(elem.Elem(), raw); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("bind: unsupported kind %s", field.Kind())
	}
	return nil
}
