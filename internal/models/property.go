package models

import "time"

// Property is a single real-estate listing.
type Property struct {
	ID             int64     `json:"id" db:"id"`
	UserID         int64     `json:"userId" db:"user_id"`
	Street         string    `json:"street" db:"street"`
	City           string    `json:"city" db:"city"`
	State          string    `json:"state" db:"state"`
	Country        string    `json:"country" db:"country"`
	PostalCode     *string   `json:"postalCode" db:"postal_code"`
	PropertyType   string    `json:"propertyType" db:"property_type"`
	PropertyStatus string    `json:"propertyStatus" db:"property_status"`
	Price          float64   `json:"price" db:"price"`
	Bedrooms       float64   `json:"bedrooms" db:"bedrooms"`
	Bathrooms      float64   `json:"bathrooms" db:"bathrooms"`
	SquareMeters   float64   `json:"squareMeters" db:"square_meters"`
	Description    string    `json:"description" db:"description"`
	AdditionalInfo *string   `json:"additionalInfo" db:"additional_info"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// PropertyListing is a property as shown in paged listings, with its cover
// picture encoded as base64 (nil when no picture is flagged as cover).
type PropertyListing struct {
	Property
	CoverPicture *string `json:"coverPicture"`
}

// PropertyDetail is a property with all of its pictures encoded as base64.
type PropertyDetail struct {
	Property
	Pictures []string `json:"pictures"`
}

// PropertyPicture is a stored picture row. Data is empty when the bytes live
// in the object store under ObjectKey.
type PropertyPicture struct {
	ID          int64   `db:"id"`
	PropertyID  int64   `db:"property_id"`
	Data        []byte  `db:"data"`
	ObjectKey   *string `db:"object_key"`
	ContentType *string `db:"content_type"`
	IsCover     bool    `db:"is_cover"`
}

// PictureUpload is an uploaded picture waiting to be persisted.
type PictureUpload struct {
	Data        []byte
	ContentType string
}

// PropertyPage is one page of a property search.
type PropertyPage struct {
	TotalCount int               `json:"totalCount"`
	Properties []PropertyListing `json:"properties"`
}

// PropertyPatch holds the editable fields of a property; nil fields are left
// untouched.
type PropertyPatch struct {
	Street         *string  `json:"street,omitempty"`
	City           *string  `json:"city,omitempty"`
	State          *string  `json:"state,omitempty"`
	Country        *string  `json:"country,omitempty"`
	PostalCode     *string  `json:"postalCode,omitempty"`
	PropertyType   *string  `json:"propertyType,omitempty"`
	PropertyStatus *string  `json:"propertyStatus,omitempty"`
	Price          *float64 `json:"price,omitempty"`
	Bedrooms       *float64 `json:"bedrooms,omitempty"`
	Bathrooms      *float64 `json:"bathrooms,omitempty"`
	SquareMeters   *float64 `json:"squareMeters,omitempty"`
	Description    *string  `json:"description,omitempty"`
	AdditionalInfo *string  `json:"additionalInfo,omitempty"`
}

// Columns returns the set columns and their values in a stable order.
func (p PropertyPatch) Columns() ([]string, []interface{}) {
	var cols []string
	var args []interface{}
	addStr := func(col string, v *string) {
		if v != nil {
			cols = append(cols, col)
			args = append(args, *v)
		}
	}
	addNum := func(col string, v *float64) {
		if v != nil {
			cols = append(cols, col)
			args = append(args, *v)
		}
	}
	addStr("street", p.Street)
	addStr("city", p.City)
	addStr("state", p.State)
	addStr("country", p.Country)
	addStr("postal_code", p.PostalCode)
	addStr("property_type", p.PropertyType)
	addStr("property_status", p.PropertyStatus)
	addNum("price", p.Price)
	addNum("bedrooms", p.Bedrooms)
	addNum("bathrooms", p.Bathrooms)
	addNum("square_meters", p.SquareMeters)
	addStr("description", p.Description)
	addStr("additional_info", p.AdditionalInfo)
	return cols, args
}
