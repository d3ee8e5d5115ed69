package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/realty-be/internal/models"
	"github.com/isdelr/realty-be/internal/services"
	"github.com/isdelr/realty-be/internal/validation"
	ws "github.com/isdelr/realty-be/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func propertyForm(t *testing.T, fields map[string]string, pictureField string, pictures int) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for i := 0; i < pictures; i++ {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+pictureField+`"; filename="p.png"`)
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(pngHeader)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/property/addProperty", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func validFields() map[string]string {
	return map[string]string{
		"street":            "1 Main St",
		"city":              "Springfield",
		"state":             "IL",
		"country":           "USA",
		"propertyType":      "house",
		"propertyStatus":    "for sale",
		"description":       "Nice place",
		"price":             "250000",
		"bedrooms":          "3",
		"bathrooms":         "2",
		"squareMeters":      "120",
		"coverPictureIndex": "1",
	}
}

func newTestPropertyHandler() (*PropertyHandler, *fakeProperties, *fakePublisher, *fakeEvents) {
	props := newFakeProperties()
	pub := &fakePublisher{}
	events := &fakeEvents{}
	return NewPropertyHandler(props, events, pub, nil), props, pub, events
}

func TestAddProperty_Created(t *testing.T) {
	for _, field := range []string{"pictures", "pictures[]"} {
		h, props, pub, events := newTestPropertyHandler()

		rec := httptest.NewRecorder()
		h.AddProperty(rec, withUser(propertyForm(t, validFields(), field, 2), 7))

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, float64(101), decodeBody(t, rec)["propertyId"])

		require.Len(t, props.created, 1)
		assert.Equal(t, "Springfield", props.created[0].City)
		assert.Equal(t, 250000.0, props.created[0].Price)
		require.Len(t, props.pictures[0], 2)
		assert.Equal(t, "image/png", props.pictures[0][0].ContentType)
		assert.Equal(t, 1, props.covers[0])

		assert.Equal(t, []string{ws.ActionPropertyCreated}, pub.actions)
		assert.Equal(t, []string{"Springfield"}, pub.cities)
		assert.Equal(t, []string{"property.created"}, events.types)
	}
}

func TestAddProperty_Rejections(t *testing.T) {
	h, props, _, _ := newTestPropertyHandler()

	rec := httptest.NewRecorder()
	h.AddProperty(rec, withUser(propertyForm(t, validFields(), "pictures", 0), 7))
	requireError(t, rec, http.StatusBadRequest, validation.MsgNoPictures)

	fields := validFields()
	fields["price"] = "-1"
	rec = httptest.NewRecorder()
	h.AddProperty(rec, withUser(propertyForm(t, fields, "pictures", 1), 7))
	requireError(t, rec, http.StatusBadRequest, "price cannot be under 0.")

	rec = httptest.NewRecorder()
	h.AddProperty(rec, propertyForm(t, validFields(), "pictures", 1))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Empty(t, props.created)
}

func TestAddProperty_UploadTooLarge(t *testing.T) {
	h, props, _, _ := newTestPropertyHandler()
	h.maxUploadBytes = 1 << 10

	fields := validFields()
	fields["description"] = strings.Repeat("spacious ", 1024)
	rec := httptest.NewRecorder()
	h.AddProperty(rec, withUser(propertyForm(t, fields, "pictures", 2), 7))

	requireError(t, rec, http.StatusBadRequest, MsgUploadTooLarge)
	assert.Empty(t, props.created)
}

func TestGetPropertiesByPage(t *testing.T) {
	h, props, _, _ := newTestPropertyHandler()

	rec := httptest.NewRecorder()
	h.GetPropertiesByPage(rec, httptest.NewRequest(http.MethodGet,
		"/property/getPropertiesByPage?page=2&pageSize=5&searchCondition=city&searchTerm=spring", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.PageQuery{Page: 2, PageSize: 5, SearchCondition: "city", SearchTerm: "spring"}, props.queries[0])
	body := decodeBody(t, rec)
	assert.Equal(t, float64(0), body["totalCount"])

	props.pageErr = services.ErrInvalidSearchCondition
	rec = httptest.NewRecorder()
	h.GetPropertiesByPage(rec, httptest.NewRequest(http.MethodGet,
		"/property/getPropertiesByPage?searchCondition=password&searchTerm=x", nil))
	requireError(t, rec, http.StatusBadRequest, MsgInvalidSearch)
}

func TestGetPropertiesByUserID_BadID(t *testing.T) {
	h, _, _, _ := newTestPropertyHandler()

	for _, target := range []string{"/x", "/x?userId=abc", "/x?userId=-3"} {
		rec := httptest.NewRecorder()
		h.GetPropertiesByUserID(rec, httptest.NewRequest(http.MethodGet, target, nil))
		requireError(t, rec, http.StatusBadRequest, MsgInvalidUserID)
	}

	rec := httptest.NewRecorder()
	h.GetPropertiesByUserID(rec, httptest.NewRequest(http.MethodGet, "/x?userId=4", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeBody(t, rec), "usersProperties")
}

func TestGetAllImagesForProperty(t *testing.T) {
	h, props, _, _ := newTestPropertyHandler()

	rec := httptest.NewRecorder()
	h.GetAllImagesForProperty(rec, httptest.NewRequest(http.MethodGet, "/x?propertyId=nope", nil))
	requireError(t, rec, http.StatusBadRequest, MsgInvalidPropertyID)

	rec = httptest.NewRecorder()
	h.GetAllImagesForProperty(rec, httptest.NewRequest(http.MethodGet, "/x?propertyId=3", nil))
	requireError(t, rec, http.StatusNotFound, MsgNoPicturesFound)

	props.gallery = []string{"aGVsbG8="}
	rec = httptest.NewRecorder()
	h.GetAllImagesForProperty(rec, httptest.NewRequest(http.MethodGet, "/x?propertyId=3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"aGVsbG8="}, decodeBody(t, rec)["pictures"])
}

func TestGetProperty(t *testing.T) {
	h, props, _, _ := newTestPropertyHandler()
	props.owners[5] = 7

	rec := httptest.NewRecorder()
	h.GetProperty(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "propertyId", "5"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeBody(t, rec), "property")

	rec = httptest.NewRecorder()
	h.GetProperty(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "propertyId", "6"))
	requireError(t, rec, http.StatusNotFound, MsgPropertyNotFound)
}

func TestEditPropertyInformation(t *testing.T) {
	edit := func(h *PropertyHandler, id string, userID int64, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r := withURLParam(jsonRequest(http.MethodPut, "/", body), "propertyId", id)
		h.EditPropertyInformation(rec, withUser(r, userID))
		return rec
	}

	h, props, pub, _ := newTestPropertyHandler()
	props.owners[5] = 7
	props.updated = models.Property{ID: 5, UserID: 7, City: "Shelbyville"}

	requireError(t, edit(h, "abc", 7, `{"city":"X"}`), http.StatusBadRequest, MsgInvalidPropertyID)
	requireError(t, edit(h, "5", 7, `{}`), http.StatusBadRequest, validation.MsgNothingToPatch)
	requireError(t, edit(h, "9", 7, `{"city":"X"}`), http.StatusNotFound, MsgPropertyNotFound)
	requireError(t, edit(h, "5", 8, `{"city":"X"}`), http.StatusForbidden, MsgNotPropertyOwner)
	assert.Zero(t, props.updates)

	rec := edit(h, "5", 7, `{"city":"Shelbyville"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "Shelbyville", body["updatedProperty"].(map[string]interface{})["city"])
	assert.Equal(t, 1, props.updates)
	assert.Equal(t, []string{ws.ActionPropertyUpdated}, pub.actions)
}

func TestDeleteProperty(t *testing.T) {
	del := func(h *PropertyHandler, id string, userID int64) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r := withURLParam(httptest.NewRequest(http.MethodDelete, "/", nil), "propertyId", id)
		h.Delete(rec, withUser(r, userID))
		return rec
	}

	h, props, pub, _ := newTestPropertyHandler()
	props.owners[5] = 7

	requireError(t, del(h, "zero", 7), http.StatusBadRequest, MsgInvalidPropertyID)
	requireError(t, del(h, "6", 7), http.StatusNotFound, MsgPropertyNotFound)
	requireError(t, del(h, "5", 8), http.StatusForbidden, MsgNotPropertyOwner)
	assert.Zero(t, props.deletes)

	rec := del(h, "5", 7)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, props.deletes)
	assert.Equal(t, []string{ws.ActionPropertyDeleted}, pub.actions)

	requireError(t, del(h, "5", 7), http.StatusNotFound, MsgPropertyNotFound)
	assert.Equal(t, 1, props.deletes)
}
