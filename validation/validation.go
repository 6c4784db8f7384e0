package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator"
	"github.com/meghashyamc/docsearch/db"
	"github.com/meghashyamc/docsearch/logger"
)

const MaxQueryLength = 200

type Validator struct {
	validator                *validator.Validate
	logger                   logger.Logger
	tagValidationDetailsOnce sync.Once
	tagValidationDetailsMap  map[string]tagValidationDetails
}

type tagValidationDetails struct {
	validatorFunc validator.Func
	err           error
}

func New(logger logger.Logger) (*Validator, error) {
	validator := &Validator{validator: validator.New(), logger: logger}
	validator.validator.RegisterTagNameFunc(useFieldNames)
	if err := validator.registerCustomValidatorsForTags(); err != nil {
		return nil, err
	}

	return validator, nil
}

func (v *Validator) Validate(i any) error {

	if err := v.validator.Struct(i); err != nil {
		v.logger.Warn("validation failed", "err", err.Error())
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {

			tagValidationDetails, ok := v.getTagValidationDetails()[validationErrs[0].Tag()]
			if ok {
				return tagValidationDetails.err
			}

			switch validationErrs[0].Tag() {
			case "required":
				return fmt.Errorf("missing required field '%s'", validationErrs[0].Field())

			case "min", "max":
				return fmt.Errorf("value or length of field '%s' is not in the expected range", validationErrs[0].Field())

			}
		}
		return err
	}
	return nil
}

func (v *Validator) getTagValidationDetails() map[string]tagValidationDetails {
	v.tagValidationDetailsOnce.Do(func() {
		v.tagValidationDetailsMap = map[string]tagValidationDetails{
			"valid_query":         {validatorFunc: v.isValidQuery, err: fmt.Errorf("invalid query, at most %d characters are allowed", MaxQueryLength)},
			"valid_sort":          {validatorFunc: isValidSort, err: errors.New("invalid sort, expected one of relevance, recent, popular, downloads")},
			"valid_resource_type": {validatorFunc: isValidResourceType, err: errors.New("invalid resource type")},
			"valid_status":        {validatorFunc: isValidStatus, err: errors.New("invalid status, expected one of pending, approved, rejected")},
		}
	})
	return v.tagValidationDetailsMap
}

func (v *Validator) registerCustomValidatorsForTags() error {

	tagValidationDetailsMap := v.getTagValidationDetails()

	for tag, tagValidationDetails := range tagValidationDetailsMap {
		if err := v.validator.RegisterValidation(tag, tagValidationDetails.validatorFunc); err != nil {
			v.logger.Error("failed to register custom validator function", "tag", tag, "err", err.Error())
			return err
		}
	}
	return nil
}

// useFieldNames reports fields by their json name, falling back to the form name
// used for query strings.
func useFieldNames(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// isValidQuery allows an empty query, which lists every approved document.
func (v *Validator) isValidQuery(fl validator.FieldLevel) bool {
	query := fl.Field().String()
	if strings.Contains(query, "\x00") {
		v.logger.Warn("query has null byte")
		return false
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		v.logger.Warn("query is too long", "length", utf8.RuneCountInString(query))
		return false
	}

	return true
}

func isValidSort(fl validator.FieldLevel) bool {
	sort := fl.Field().String()
	return sort == "" || db.SortKey(sort).Valid()
}

func isValidResourceType(fl validator.FieldLevel) bool {
	resourceType := fl.Field().String()
	return resourceType == "" || db.ResourceType(resourceType).Valid()
}

func isValidStatus(fl validator.FieldLevel) bool {
	return db.Status(fl.Field().String()).Valid()
}
