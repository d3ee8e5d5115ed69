package services

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/isdelr/realty-be/internal/database"
	"github.com/isdelr/realty-be/internal/models"
	"github.com/isdelr/realty-be/internal/storage"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Page size bounds of GetPropertiesByPage.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// searchColumns is the allow-list of searchable fields.
var searchColumns = map[string]string{
	"city":    "city",
	"country": "country",
	"street":  "street",
}

const propertyColumns = `id, user_id, street, city, state, country, postal_code, property_type,
	property_status, price, bedrooms, bathrooms, square_meters, description, additional_info,
	created_at, updated_at`

// PageQuery selects one page of a property search.
type PageQuery struct {
	Page            int
	PageSize        int
	SearchCondition string
	SearchTerm      string
}

// PropertyServiceProvider defines the interface for property services.
type PropertyServiceProvider interface {
	CreateProperty(ctx context.Context, userID int64, p models.Property, pictures []models.PictureUpload, coverIndex int) (int64, error)
	GetPropertiesByPage(ctx context.Context, q PageQuery) (models.PropertyPage, error)
	GetPropertiesByUser(ctx context.Context, userID int64) ([]models.PropertyListing, error)
	GetProperty(ctx context.Context, id int64) (models.PropertyDetail, error)
	GetPictures(ctx context.Context, propertyID int64) ([]string, error)
	PropertyOwner(ctx context.Context, id int64) (int64, error)
	UpdateProperty(ctx context.Context, id int64, patch models.PropertyPatch) (models.Property, error)
	DeleteProperty(ctx context.Context, id int64) error
}

// PropertyService provides business logic for listings and their pictures.
type PropertyService struct {
	db    *sqlx.DB
	blobs storage.BlobStore
}

// NewPropertyService creates a new PropertyService. Pictures are kept in the
// database when blobs is nil.
func NewPropertyService(db *sqlx.DB, blobs storage.BlobStore) *PropertyService {
	return &PropertyService{db: db, blobs: blobs}
}

// CreateProperty stores a property and its pictures in one transaction and
// returns the new property id. Only the picture at coverIndex is flagged as
// cover; an index outside the uploads flags none.
func (s *PropertyService) CreateProperty(ctx context.Context, userID int64, p models.Property, pictures []models.PictureUpload, coverIndex int) (int64, error) {
	var (
		id       int64
		uploaded []string
	)
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		insert := tx.Rebind(`INSERT INTO properties (user_id, street, city, state, country, postal_code,
			property_type, property_status, price, bedrooms, bathrooms, square_meters, description, additional_info)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
		err := tx.QueryRowxContext(ctx, insert, userID, p.Street, p.City, p.State, p.Country, p.PostalCode,
			p.PropertyType, p.PropertyStatus, p.Price, p.Bedrooms, p.Bathrooms, p.SquareMeters,
			p.Description, p.AdditionalInfo).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert property: %w", err)
		}

		insertPicture := tx.Rebind(`INSERT INTO property_pictures (property_id, data, object_key, content_type, is_cover)
			VALUES (?, ?, ?, ?, ?)`)
		for i, pic := range pictures {
			data := pic.Data
			var key *string
			if s.blobs != nil {
				k := storage.NewPictureKey(id)
				if err := s.blobs.Put(ctx, k, pic.Data, pic.ContentType); err != nil {
					return err
				}
				uploaded = append(uploaded, k)
				key, data = &k, nil
			}
			if _, err := tx.ExecContext(ctx, insertPicture, id, data, key, pic.ContentType, i == coverIndex); err != nil {
				return fmt.Errorf("insert picture %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		s.discardBlobs(ctx, uploaded)
		return 0, err
	}
	return id, nil
}

// GetPropertiesByPage returns one page of properties, optionally filtered by
// a case-insensitive substring match on an allow-listed field. Pages are
// 1-based.
func (s *PropertyService) GetPropertiesByPage(ctx context.Context, q PageQuery) (models.PropertyPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}

	where := ""
	var args []interface{}
	if q.SearchCondition != "" || q.SearchTerm != "" {
		column, ok := searchColumns[q.SearchCondition]
		if !ok {
			return models.PropertyPage{}, ErrInvalidSearchCondition
		}
		where = " WHERE LOWER(" + column + `) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(q.SearchTerm))+"%")
	}

	var total int
	if err := s.db.GetContext(ctx, &total, s.db.Rebind("SELECT COUNT(*) FROM properties"+where), args...); err != nil {
		return models.PropertyPage{}, fmt.Errorf("count properties: %w", err)
	}

	var rows []models.Property
	query := s.db.Rebind("SELECT " + propertyColumns + " FROM properties" + where + " ORDER BY id DESC LIMIT ? OFFSET ?")
	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return models.PropertyPage{}, fmt.Errorf("select properties: %w", err)
	}

	listings, err := s.withCovers(ctx, rows)
	if err != nil {
		return models.PropertyPage{}, err
	}
	return models.PropertyPage{TotalCount: total, Properties: listings}, nil
}

// GetPropertiesByUser returns every property owned by a user.
func (s *PropertyService) GetPropertiesByUser(ctx context.Context, userID int64) ([]models.PropertyListing, error) {
	var rows []models.Property
	query := s.db.Rebind("SELECT " + propertyColumns + " FROM properties WHERE user_id = ? ORDER BY id DESC")
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("select user properties: %w", err)
	}
	return s.withCovers(ctx, rows)
}

// GetProperty returns a property with all its pictures.
func (s *PropertyService) GetProperty(ctx context.Context, id int64) (models.PropertyDetail, error) {
	p, err := s.getProperty(ctx, id)
	if err != nil {
		return models.PropertyDetail{}, err
	}
	pictures, err := s.GetPictures(ctx, id)
	if err != nil {
		return models.PropertyDetail{}, err
	}
	return models.PropertyDetail{Property: p, Pictures: pictures}, nil
}

// GetPictures returns the pictures of a property as base64 strings, in
// upload order.
func (s *PropertyService) GetPictures(ctx context.Context, propertyID int64) ([]string, error) {
	var pics []models.PropertyPicture
	query := s.db.Rebind("SELECT id, property_id, data, object_key, content_type, is_cover FROM property_pictures WHERE property_id = ? ORDER BY id")
	if err := s.db.SelectContext(ctx, &pics, query, propertyID); err != nil {
		return nil, fmt.Errorf("select pictures: %w", err)
	}

	encoded := make([]string, 0, len(pics))
	for _, pic := range pics {
		data, err := s.pictureBytes(ctx, pic)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, base64.StdEncoding.EncodeToString(data))
	}
	return encoded, nil
}

// PropertyOwner returns the id of the user owning a property.
func (s *PropertyService) PropertyOwner(ctx context.Context, id int64) (int64, error) {
	var owner int64
	if err := s.db.GetContext(ctx, &owner, s.db.Rebind("SELECT user_id FROM properties WHERE id = ?"), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return owner, nil
}

// UpdateProperty writes the fields set in patch and returns the updated row.
func (s *PropertyService) UpdateProperty(ctx context.Context, id int64, patch models.PropertyPatch) (models.Property, error) {
	cols, args := patch.Columns()
	if len(cols) == 0 {
		return s.getProperty(ctx, id)
	}

	sets := make([]string, 0, len(cols)+1)
	for _, col := range cols {
		sets = append(sets, col+" = ?")
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	query := s.db.Rebind("UPDATE properties SET " + strings.Join(sets, ", ") + " WHERE id = ?")
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return models.Property{}, fmt.Errorf("update property: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Property{}, ErrNotFound
	}
	return s.getProperty(ctx, id)
}

// DeleteProperty removes a property. Its pictures are deleted first.
func (s *PropertyService) DeleteProperty(ctx context.Context, id int64) error {
	var keys []string
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &keys, tx.Rebind("SELECT object_key FROM property_pictures WHERE property_id = ? AND object_key IS NOT NULL"), id); err != nil {
			return fmt.Errorf("select picture keys: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM property_pictures WHERE property_id = ?"), id); err != nil {
			return fmt.Errorf("delete pictures: %w", err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM properties WHERE id = ?"), id)
		if err != nil {
			return fmt.Errorf("delete property: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.discardBlobs(ctx, keys)
	return nil
}

func (s *PropertyService) getProperty(ctx context.Context, id int64) (models.Property, error) {
	var p models.Property
	if err := s.db.GetContext(ctx, &p, s.db.Rebind("SELECT "+propertyColumns+" FROM properties WHERE id = ?"), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Property{}, ErrNotFound
		}
		return models.Property{}, err
	}
	return p, nil
}

// withCovers attaches the base64 cover picture to each property.
func (s *PropertyService) withCovers(ctx context.Context, rows []models.Property) ([]models.PropertyListing, error) {
	listings := make([]models.PropertyListing, 0, len(rows))
	query := s.db.Rebind("SELECT id, property_id, data, object_key, content_type, is_cover FROM property_pictures WHERE property_id = ? AND is_cover = ? ORDER BY id LIMIT 1")
	for _, p := range rows {
		listing := models.PropertyListing{Property: p}

		var pic models.PropertyPicture
		err := s.db.GetContext(ctx, &pic, query, p.ID, true)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return nil, fmt.Errorf("select cover picture: %w", err)
		default:
			data, err := s.pictureBytes(ctx, pic)
			if err != nil {
				return nil, err
			}
			cover := base64.StdEncoding.EncodeToString(data)
			listing.CoverPicture = &cover
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

func (s *PropertyService) pictureBytes(ctx context.Context, pic models.PropertyPicture) ([]byte, error) {
	if pic.ObjectKey == nil {
		return pic.Data, nil
	}
	if s.blobs == nil {
		return nil, fmt.Errorf("picture %d is in object storage but none is configured", pic.ID)
	}
	return s.blobs.Get(ctx, *pic.ObjectKey)
}

// discardBlobs deletes stored objects on a best-effort basis.
func (s *PropertyService) discardBlobs(ctx context.Context, keys []string) {
	if s.blobs == nil {
		return
	}
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("object_key", key).Msg("Failed to delete picture object")
		}
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
