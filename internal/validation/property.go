package validation

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/isdelr/realty-be/internal/models"
)

// Rejection messages of the property validators that do not name a field.
const (
	MsgNoPictures     = "Please provide at least one picture."
	MsgNothingToPatch = "No fields provided to update."
)

var (
	requiredTextFields = []string{"street", "city", "state", "country", "propertyType", "propertyStatus", "description"}
	optionalTextFields = []string{"postalCode", "additionalInfo"}
	numericFields      = []string{"price", "bedrooms", "bathrooms", "squareMeters"}
)

// maxLengths lists the length limits in the order they are checked.
var maxLengths = []struct {
	field string
	max   int
}{
	{"description", 2000},
	{"additionalInfo", 3000},
	{"street", 200},
	{"city", 100},
	{"state", 100},
	{"country", 100},
	{"postalCode", 40},
}

// NewProperty is an accepted property creation request.
type NewProperty struct {
	Property models.Property
	// CoverIndex is the position of the cover picture among the uploads, or
	// -1 when none was given. It is not checked against the upload count.
	CoverIndex int
}

// lookup returns a field value and whether the field was sent at all.
type lookup func(field string) (interface{}, bool)

func formLookup(form url.Values) lookup {
	return func(field string) (interface{}, bool) {
		values, ok := form[field]
		if !ok || len(values) == 0 {
			return nil, false
		}
		return values[0], true
	}
}

func mapLookup(body map[string]interface{}) lookup {
	return func(field string) (interface{}, bool) {
		v, ok := body[field]
		return v, ok
	}
}

// Property checks a multipart property creation form. pictureCount is the
// number of uploaded pictures. The bearer token is checked before this runs.
func Property(form url.Values, pictureCount int) (NewProperty, error) {
	if pictureCount <= 0 {
		return NewProperty{}, reject(MsgNoPictures)
	}

	fields, err := checkPropertyFields(formLookup(form), false)
	if err != nil {
		return NewProperty{}, err
	}

	p := models.Property{
		Street:         *fields.text["street"],
		City:           *fields.text["city"],
		State:          *fields.text["state"],
		Country:        *fields.text["country"],
		PostalCode:     fields.text["postalCode"],
		PropertyType:   *fields.text["propertyType"],
		PropertyStatus: *fields.text["propertyStatus"],
		Price:          *fields.num["price"],
		Bedrooms:       *fields.num["bedrooms"],
		Bathrooms:      *fields.num["bathrooms"],
		SquareMeters:   *fields.num["squareMeters"],
		Description:    *fields.text["description"],
		AdditionalInfo: fields.text["additionalInfo"],
	}
	return NewProperty{Property: p, CoverIndex: coverIndex(form.Get("coverPictureIndex"))}, nil
}

// PropertyUpdate checks a JSON property update. Only the fields present are
// checked, with the same rules as on creation.
func PropertyUpdate(body map[string]interface{}) (models.PropertyPatch, error) {
	fields, err := checkPropertyFields(mapLookup(body), true)
	if err != nil {
		return models.PropertyPatch{}, err
	}

	patch := models.PropertyPatch{
		Street:         fields.text["street"],
		City:           fields.text["city"],
		State:          fields.text["state"],
		Country:        fields.text["country"],
		PostalCode:     fields.text["postalCode"],
		PropertyType:   fields.text["propertyType"],
		PropertyStatus: fields.text["propertyStatus"],
		Price:          fields.num["price"],
		Bedrooms:       fields.num["bedrooms"],
		Bathrooms:      fields.num["bathrooms"],
		SquareMeters:   fields.num["squareMeters"],
		Description:    fields.text["description"],
		AdditionalInfo: fields.text["additionalInfo"],
	}
	if cols, _ := patch.Columns(); len(cols) == 0 {
		return models.PropertyPatch{}, reject(MsgNothingToPatch)
	}
	return patch, nil
}

type propertyFields struct {
	text map[string]*string
	num  map[string]*float64
}

// checkPropertyFields applies the text, numeric and length rules in that
// order. With partial set, missing required fields are skipped.
func checkPropertyFields(get lookup, partial bool) (propertyFields, error) {
	fields := propertyFields{text: map[string]*string{}, num: map[string]*float64{}}

	for _, name := range requiredTextFields {
		v, ok := get(name)
		if !ok && partial {
			continue
		}
		s, isString := v.(string)
		if !ok || !isString || isBlank(s) {
			return fields, reject("%s is required and must be a non-empty string.", name)
		}
		fields.text[name] = &s
	}

	for _, name := range optionalTextFields {
		v, ok := get(name)
		if !ok {
			continue
		}
		s, isString := v.(string)
		if !isString || isBlank(s) {
			return fields, reject("%s must be a non-empty string when provided.", name)
		}
		fields.text[name] = &s
	}

	for _, name := range numericFields {
		v, ok := get(name)
		if !ok && partial {
			continue
		}
		n, isNumber := toNumber(v)
		if !isNumber {
			return fields, reject("%s must be a number.", name)
		}
		if n < 0 {
			return fields, reject("%s cannot be under 0.", name)
		}
		fields.num[name] = &n
	}

	for _, limit := range maxLengths {
		s := fields.text[limit.field]
		if s != nil && utf8.RuneCountInString(*s) > limit.max {
			return fields, reject("%s is too long (max %d characters).", limit.field, limit.max)
		}
	}
	return fields, nil
}

// toNumber accepts JSON numbers and numeric strings.
func toNumber(v interface{}) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func coverIndex(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return -1
	}
	return n
}
