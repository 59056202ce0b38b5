// Package validation checks request parameter sets before they are sent.
//
// Field rules live in `validate` tags on the request types. Rules spanning
// several fields (id/key exclusivity, move targets) are registered here as
// struct level validations.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/syncano/syncano.go/pkg/constants"
	"github.com/syncano/syncano.go/pkg/models"
)

var (
	instance *validator.Validate
	once     sync.Once
)

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(wireName)
		v.RegisterStructValidation(collectionRefLevel, models.CollectionRef{})
		v.RegisterStructValidation(dataRefLevel, models.DataRef{})
		v.RegisterStructValidation(moveDataLevel, models.MoveDataRequest{})
		instance = v
	})
	return instance
}

// wireName reports fields by their json parameter name.
func wireName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func collectionRefLevel(sl validator.StructLevel) {
	ref := sl.Current().Interface().(models.CollectionRef)
	switch {
	case ref.CollectionID == "" && ref.CollectionKey == "":
		sl.ReportError(ref.CollectionID, "collection_id", "CollectionID", "id_or_key", "collection_key")
	case ref.CollectionID != "" && ref.CollectionKey != "":
		sl.ReportError(ref.CollectionID, "collection_id", "CollectionID", "id_xor_key", "collection_key")
	}
}

func dataRefLevel(sl validator.StructLevel) {
	ref := sl.Current().Interface().(models.DataRef)
	switch {
	case ref.DataID == "" && ref.DataKey == "":
		sl.ReportError(ref.DataID, "data_id", "DataID", "id_or_key", "data_key")
	case ref.DataID != "" && ref.DataKey != "":
		sl.ReportError(ref.DataID, "data_id", "DataID", "id_xor_key", "data_key")
	}
}

func moveDataLevel(sl validator.StructLevel) {
	req := sl.Current().Interface().(models.MoveDataRequest)
	if req.NewFolder == "" && req.NewState == "" {
		sl.ReportError(req.NewFolder, "new_folder", "NewFolder", "required_without", "new_state")
	}
}

// Error is a local validation failure. It matches constants.ErrInvalidArgument.
type Error struct {
	// Method is the remote method the request was meant for.
	Method string
	// Fields lists every offending parameter, by wire name.
	Fields []FieldError
}

type FieldError struct {
	Param string
	Rule  string
	Arg   string
}

func (e FieldError) String() string {
	switch e.Rule {
	case "required":
		return fmt.Sprintf("%s is required", e.Param)
	case "id_or_key":
		return fmt.Sprintf("one of %s or %s is required", e.Param, e.Arg)
	case "id_xor_key":
		return fmt.Sprintf("%s and %s are mutually exclusive", e.Param, e.Arg)
	case "required_without":
		return fmt.Sprintf("one of %s or %s is required", e.Param, e.Arg)
	case "max":
		return fmt.Sprintf("%s must be at most %s", e.Param, e.Arg)
	case "min":
		return fmt.Sprintf("%s must be at least %s", e.Param, e.Arg)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", e.Param, e.Arg)
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", e.Param, e.Arg)
	default:
		if e.Arg != "" {
			return fmt.Sprintf("%s failed %s=%s", e.Param, e.Rule, e.Arg)
		}
		return fmt.Sprintf("%s failed %s", e.Param, e.Rule)
	}
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.String())
	}
	return fmt.Sprintf("%s: %s: %s", e.Method, constants.ErrInvalidArgument, strings.Join(msgs, "; "))
}

func (e *Error) Is(target error) bool {
	return target == constants.ErrInvalidArgument
}

// Has reports whether param failed validation.
func (e *Error) Has(param string) bool {
	for _, f := range e.Fields {
		if f.Param == param {
			return true
		}
	}
	return false
}

// Struct validates req, which must be a pointer to a request type or a request value.
func Struct(method string, req any) error {
	if req == nil {
		return &Error{Method: method, Fields: []FieldError{{Param: "request", Rule: "required"}}}
	}

	err := get().Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: req is not a struct.
		return fmt.Errorf("%s: %w: %v", method, constants.ErrInvalidArgument, err)
	}

	out := &Error{Method: method, Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Param: fe.Field(),
			Rule:  fe.Tag(),
			Arg:   argName(req, fe),
		})
	}
	return out
}

// argName reports the field named by a cross-field rule by its wire name.
func argName(req any, fe validator.FieldError) string {
	switch fe.Tag() {
	case "nefield", "eqfield", "gtfield", "gtefield", "ltfield", "ltefield":
	default:
		return fe.Param()
	}

	// StructNamespace is Type.Field...Field; the referenced field is a
	// sibling of the last one.
	t := indirect(reflect.TypeOf(req))
	path := strings.Split(fe.StructNamespace(), ".")
	for _, name := range path[1 : len(path)-1] {
		name, _, _ = strings.Cut(name, "[")
		f, ok := t.FieldByName(name)
		if !ok {
			return fe.Param()
		}
		t = indirect(f.Type)
	}
	if t.Kind() != reflect.Struct {
		return fe.Param()
	}
	if f, ok := t.FieldByName(fe.Param()); ok {
		if name := wireName(f); name != "" {
			return name
		}
	}
	return fe.Param()
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Array || t.Kind() == reflect.Map {
		t = t.Elem()
	}
	return t
}

// NotEmpty reports an error when value is empty. It is used for operations
// that take a bare identifier instead of a request type.
func NotEmpty(method, param, value string) error {
	if strings.TrimSpace(value) != "" {
		return nil
	}
	return &Error{Method: method, Fields: []FieldError{{Param: param, Rule: "required"}}}
}
