package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/isdelr/realty-be/internal/auth"
	"github.com/isdelr/realty-be/internal/models"
	"github.com/isdelr/realty-be/internal/services"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	users     map[string]models.User
	passwords map[string]string
	created   []models.NewUser
	createErr error
	authErr   error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]models.User{}, passwords: map[string]string{}}
}

func (f *fakeUsers) add(id int64, username, email, password string) {
	f.users[username] = models.User{ID: id, Username: username, Email: email}
	f.passwords[username] = password
}

func (f *fakeUsers) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, services.ErrUserNotFound
}

func (f *fakeUsers) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	u, ok := f.users[username]
	if !ok {
		return models.User{}, services.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) CreateUser(ctx context.Context, nu models.NewUser) (models.User, error) {
	if f.createErr != nil {
		return models.User{}, f.createErr
	}
	f.created = append(f.created, nu)
	u := models.User{ID: int64(len(f.users) + 1), Username: nu.Username, Email: nu.Email}
	f.users[nu.Username] = u
	f.passwords[nu.Username] = nu.Password
	return u, nil
}

func (f *fakeUsers) AuthenticateUser(ctx context.Context, username, password string) (models.User, error) {
	if f.authErr != nil {
		return models.User{}, f.authErr
	}
	u, ok := f.users[username]
	if !ok || f.passwords[username] != password {
		return models.User{}, services.ErrInvalidCredentials
	}
	return u, nil
}

type fakeInfo struct {
	contact    models.ContactInfo
	contactErr error
	profile    models.Profile
	profileErr error
	patches    []models.UserInfoPatch
	picture    []byte
	pictureCT  string
}

func (f *fakeInfo) GetContactInfo(ctx context.Context, userID int64) (models.ContactInfo, error) {
	return f.contact, f.contactErr
}

func (f *fakeInfo) GetProfile(ctx context.Context, userID int64) (models.Profile, error) {
	return f.profile, f.profileErr
}

func (f *fakeInfo) UpdateUserInfo(ctx context.Context, userID int64, patch models.UserInfoPatch) (models.Profile, error) {
	f.patches = append(f.patches, patch)
	return f.profile, f.profileErr
}

func (f *fakeInfo) GetProfilePicture(ctx context.Context, userID int64) ([]byte, string, error) {
	return f.picture, f.pictureCT, f.profileErr
}

func (f *fakeInfo) UpdateProfilePicture(ctx context.Context, userID int64, data []byte, contentType string) error {
	f.picture, f.pictureCT = data, contentType
	return f.profileErr
}

type fakeProperties struct {
	owners    map[int64]int64
	created   []models.Property
	pictures  [][]models.PictureUpload
	covers    []int
	queries   []services.PageQuery
	updates   int
	deletes   int
	pageErr   error
	gallery   []string
	updated   models.Property
	updateErr error
}

func newFakeProperties() *fakeProperties {
	return &fakeProperties{owners: map[int64]int64{}}
}

func (f *fakeProperties) CreateProperty(ctx context.Context, userID int64, p models.Property, pictures []models.PictureUpload, coverIndex int) (int64, error) {
	f.created = append(f.created, p)
	f.pictures = append(f.pictures, pictures)
	f.covers = append(f.covers, coverIndex)
	id := int64(100 + len(f.created))
	f.owners[id] = userID
	return id, nil
}

func (f *fakeProperties) GetPropertiesByPage(ctx context.Context, q services.PageQuery) (models.PropertyPage, error) {
	f.queries = append(f.queries, q)
	if f.pageErr != nil {
		return models.PropertyPage{}, f.pageErr
	}
	return models.PropertyPage{TotalCount: 0, Properties: []models.PropertyListing{}}, nil
}

func (f *fakeProperties) GetPropertiesByUser(ctx context.Context, userID int64) ([]models.PropertyListing, error) {
	return []models.PropertyListing{}, nil
}

func (f *fakeProperties) GetProperty(ctx context.Context, id int64) (models.PropertyDetail, error) {
	if _, ok := f.owners[id]; !ok {
		return models.PropertyDetail{}, services.ErrNotFound
	}
	return models.PropertyDetail{Property: models.Property{ID: id, UserID: f.owners[id]}, Pictures: f.gallery}, nil
}

func (f *fakeProperties) GetPictures(ctx context.Context, propertyID int64) ([]string, error) {
	return f.gallery, nil
}

func (f *fakeProperties) PropertyOwner(ctx context.Context, id int64) (int64, error) {
	owner, ok := f.owners[id]
	if !ok {
		return 0, services.ErrNotFound
	}
	return owner, nil
}

func (f *fakeProperties) UpdateProperty(ctx context.Context, id int64, patch models.PropertyPatch) (models.Property, error) {
	f.updates++
	return f.updated, f.updateErr
}

func (f *fakeProperties) DeleteProperty(ctx context.Context, id int64) error {
	f.deletes++
	delete(f.owners, id)
	return nil
}

type fakeEvents struct {
	types  []string
	recent []models.Event
	limit  int
}

func (f *fakeEvents) CreateEvent(ctx context.Context, eventType, level, message string, userID *int64) error {
	f.types = append(f.types, eventType)
	return nil
}

func (f *fakeEvents) GetRecentEvents(ctx context.Context, userID int64, limit int) ([]models.Event, error) {
	f.limit = limit
	return f.recent, nil
}

func (f *fakeEvents) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakePublisher struct {
	actions []string
	cities  []string
}

func (f *fakePublisher) PublishListing(action string, p models.Property) {
	f.actions = append(f.actions, action)
	f.cities = append(f.cities, p.City)
}

// withUser attaches claims for userID the way the authentication gate does.
func withUser(r *http.Request, userID int64) *http.Request {
	claims := &auth.Claims{UserID: userID, Username: "user"}
	claims.ID = "token-id"
	return r.WithContext(auth.WithClaims(r.Context(), claims))
}

func jsonRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	require.Equal(t, message, decodeBody(t, rec)["error"])
}
