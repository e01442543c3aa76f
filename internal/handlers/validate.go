package handlers

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type groupInput struct {
	Name        string `json:"name" validate:"required,max=30"`
	Description string `json:"description" validate:"max=140"`
}

type settingsInput struct {
	Name        string `json:"name" validate:"required,max=30"`
	Handle      string `json:"handle" validate:"min=3,max=20,handle"`
	AccentColor string `json:"accentColor" validate:"oneof=red orange yellow green blue purple pink"`
}

type messageInput struct {
	Content string `json:"content" validate:"required,max=2000"`
}

var validate = newValidator()

// newValidator reports fields by their wire names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
		return handlePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// fieldErrors collects per-field messages; nil means valid.
type fieldErrors map[string]string

func (f *fieldErrors) add(field, msg string) {
	if *f == nil {
		*f = fieldErrors{}
	}
	(*f)[field] = msg
}

func check(input any) fieldErrors {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var errs fieldErrors
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.add("_", err.Error())
		return errs
	}
	for _, fe := range verrs {
		errs.add(fe.Field(), describe(fe))
	}
	return errs
}

func describe(fe validator.FieldError) string {
	switch {
	case fe.Field() == "handle":
		return "handle must be 3-20 letters, digits or underscores"
	case fe.Field() == "content" && fe.Tag() == "required":
		return "message is empty"
	case fe.Field() == "accentColor":
		return "unknown accent color"
	case fe.Tag() == "required":
		return fe.Field() + " is required"
	case fe.Tag() == "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	}
	return fe.Field() + " is invalid"
}

func validateGroup(name, description string) fieldErrors {
	return check(groupInput{Name: name, Description: description})
}

func validateSettings(name, handle, accentColor string) fieldErrors {
	return check(settingsInput{Name: name, Handle: handle, AccentColor: accentColor})
}

func validateContent(content string) fieldErrors {
	return check(messageInput{Content: content})
}

func clean(s string) string { return strings.TrimSpace(s) }
