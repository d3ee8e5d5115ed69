package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/isdelr/realty-be/internal/auth"
	"github.com/isdelr/realty-be/internal/metrics"
	"github.com/isdelr/realty-be/internal/models"
	"github.com/isdelr/realty-be/internal/services"
	"github.com/isdelr/realty-be/internal/validation"
	ws "github.com/isdelr/realty-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// Client-facing messages of the property endpoints.
const (
	MsgInvalidPropertyID = "Invalid property id."
	MsgInvalidUserID     = "Invalid user id."
	MsgInvalidForm       = "Invalid multipart form."
	MsgInvalidSearch     = "Invalid search condition. Use city, country or street."
	MsgPropertyNotFound  = "Property not found."
	MsgNoPicturesFound   = "No pictures found for this property."
	MsgNotPropertyOwner  = "You are not allowed to modify this property."
	MsgPictureTooLarge   = "Each picture must be at most 10 MB."
	MsgUploadTooLarge    = "The listing upload must be at most 64 MB in total."
)

const (
	maxPropertyFormMemory  = 32 << 20
	maxPropertyPictureSize = 10 << 20
	maxPropertyUploadSize  = 64 << 20
)

// PropertyHandler handles HTTP requests for listings.
type PropertyHandler struct {
	service   services.PropertyServiceProvider
	events    services.EventServiceProvider
	publisher ListingPublisher
	metrics   *metrics.Metrics

	maxUploadBytes int64
}

// NewPropertyHandler creates a new PropertyHandler. events and publisher may be nil.
func NewPropertyHandler(service services.PropertyServiceProvider, events services.EventServiceProvider, publisher ListingPublisher, m *metrics.Metrics) *PropertyHandler {
	return &PropertyHandler{
		service:        service,
		events:         events,
		publisher:      publisher,
		metrics:        m,
		maxUploadBytes: maxPropertyUploadSize,
	}
}

// AddProperty handles creation of a listing from a multipart form with its
// pictures.
func (h *PropertyHandler) AddProperty(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(maxPropertyFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, MsgUploadTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, MsgInvalidForm)
		return
	}
	var files []*multipart.FileHeader
	if r.MultipartForm != nil {
		files = append(files, r.MultipartForm.File["pictures"]...)
		files = append(files, r.MultipartForm.File["pictures[]"]...)
	}

	input, err := validation.Property(r.PostForm, len(files))
	if err != nil {
		writeFailure(w, err)
		return
	}

	pictures, err := readPictures(files)
	if err != nil {
		var vErr *validation.Error
		if errors.As(err, &vErr) {
			writeFailure(w, err)
			return
		}
		log.Error().Err(err).Msg("Failed to read uploaded pictures")
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}

	id, err := h.service.CreateProperty(r.Context(), claims.UserID, input.Property, pictures, input.CoverIndex)
	if err != nil {
		log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Failed to create property")
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}

	created := input.Property
	created.ID, created.UserID = id, claims.UserID
	h.announce(ws.ActionPropertyCreated, created)
	recordEvent(r, h.events, claims.UserID, "property.created", fmt.Sprintf("Listed %s, %s.", created.Street, created.City))

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":    "Property created successfully.",
		"propertyId": id,
	})
}

// GetPropertiesByPage handles paged listing search.
func (h *PropertyHandler) GetPropertiesByPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))

	result, err := h.service.GetPropertiesByPage(r.Context(), services.PageQuery{
		Page:            page,
		PageSize:        pageSize,
		SearchCondition: q.Get("searchCondition"),
		SearchTerm:      q.Get("searchTerm"),
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidSearchCondition) {
			writeError(w, http.StatusBadRequest, MsgInvalidSearch)
			return
		}
		log.Error().Err(err).Msg("Failed to retrieve properties")
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetPropertiesByUserID handles listing every property of one owner.
func (h *PropertyHandler) GetPropertiesByUserID(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryID(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, MsgInvalidUserID)
		return
	}

	listings, err := h.service.GetPropertiesByUser(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to retrieve user properties")
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"usersProperties": listings})
}

// GetProperty handles retrieving one property with all its pictures.
func (h *PropertyHandler) GetProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "propertyId")
	if !ok {
		writeError(w, http.StatusBadRequest, MsgInvalidPropertyID)
		return
	}

	detail, err := h.service.GetProperty(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, MsgPropertyNotFound)
			return
		}
		log.Error().Err(err).Int64("property_id", id).Msg("Failed to retrieve property")
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"property": detail})
}

// GetAllImagesForProperty handles retrieving the pictures of a property.
func (h *PropertyHandler) GetAllImagesForProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(r, "propertyId")
	if !ok {
		writeError(w, http.StatusBadRequest, MsgInvalidPropertyID)
		return
	}

	pictures, err := h.service.GetPictures(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("property_id", id).Msg("Failed to retrieve pictures")
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}
	if len(pictures) == 0 {
		writeError(w, http.StatusNotFound, MsgNoPicturesFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pictures": pictures})
}

// EditPropertyInformation handles a partial update by the property owner.
func (h *PropertyHandler) EditPropertyInformation(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	id, ok := urlID(r, "propertyId")
	if !ok {
		writeError(w, http.StatusBadRequest, MsgInvalidPropertyID)
		return
	}

	body := map[string]interface{}{}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}
	patch, err := validation.PropertyUpdate(body)
	if err != nil {
		writeFailure(w, err)
		return
	}

	if !h.authorizeOwner(w, r, id, claims.UserID) {
		return
	}

	updated, err := h.service.UpdateProperty(r.Context(), id, patch)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, MsgPropertyNotFound)
			return
		}
		log.Error().Err(err).Int64("property_id", id).Msg("Failed to update property")
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}

	h.announce(ws.ActionPropertyUpdated, updated)
	recordEvent(r, h.events, claims.UserID, "property.updated", fmt.Sprintf("Updated listing #%d.", id))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"updatedProperty": updated,
		"message":         "Property updated successfully.",
	})
}

// Delete handles removal of a property by its owner. Neither a missing
// property nor a foreign one reaches the delete call.
func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	id, ok := urlID(r, "propertyId")
	if !ok {
		writeError(w, http.StatusBadRequest, MsgInvalidPropertyID)
		return
	}

	if !h.authorizeOwner(w, r, id, claims.UserID) {
		return
	}

	if err := h.service.DeleteProperty(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, MsgPropertyNotFound)
			return
		}
		log.Error().Err(err).Int64("property_id", id).Msg("Failed to delete property")
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}

	h.announce(ws.ActionPropertyDeleted, models.Property{ID: id, UserID: claims.UserID})
	recordEvent(r, h.events, claims.UserID, "property.deleted", fmt.Sprintf("Removed listing #%d.", id))

	writeJSON(w, http.StatusOK, map[string]string{"message": "Property deleted successfully."})
}

// authorizeOwner writes 404 or 403 and reports false unless userID owns the property.
func (h *PropertyHandler) authorizeOwner(w http.ResponseWriter, r *http.Request, propertyID, userID int64) bool {
	owner, err := h.service.PropertyOwner(r.Context(), propertyID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, MsgPropertyNotFound)
			return false
		}
		log.Error().Err(err).Int64("property_id", propertyID).Msg("Failed to look up property owner")
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return false
	}
	if owner != userID {
		log.Warn().Int64("property_id", propertyID).Int64("user_id", userID).Msg("Rejected change by non-owner")
		auth.WriteError(w, auth.Forbidden(MsgNotPropertyOwner))
		return false
	}
	return true
}

func (h *PropertyHandler) announce(action string, p models.Property) {
	h.metrics.ListingChanged(action)
	if h.publisher != nil {
		h.publisher.PublishListing(action, p)
	}
}

// readPictures loads the uploaded files in form order.
func readPictures(files []*multipart.FileHeader) ([]models.PictureUpload, error) {
	pictures := make([]models.PictureUpload, 0, len(files))
	for _, fh := range files {
		if fh.Size > maxPropertyPictureSize {
			return nil, &validation.Error{Status: http.StatusBadRequest, Message: MsgPictureTooLarge}
		}
		data, err := readFile(fh)
		if err != nil {
			return nil, err
		}
		pictures = append(pictures, models.PictureUpload{Data: data, ContentType: contentTypeOf(fh, data)})
	}
	return pictures, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func contentTypeOf(fh *multipart.FileHeader, data []byte) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return http.DetectContentType(data)
}
