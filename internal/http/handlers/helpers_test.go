package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/casahub/casahub/internal/auth"
	"github.com/casahub/casahub/internal/cache"
	"github.com/casahub/casahub/internal/config"
	apphttp "github.com/casahub/casahub/internal/http"
	"github.com/casahub/casahub/internal/http/handlers"
	"github.com/casahub/casahub/internal/http/middlewares"
	"github.com/casahub/casahub/internal/repo/memory"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeUploader records what the handler sent and returns a canned URL.
type fakeUploader struct {
	uploadFn func(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

func (f *fakeUploader) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if f.uploadFn != nil {
		return f.uploadFn(ctx, key, contentType, body)
	}
	return "https://media.test/" + key, nil
}

type testApp struct {
	router   *gin.Engine
	users    *memory.UsersRepo
	listings *memory.ListingsRepo
	cache    *cache.Memory
	uploader *fakeUploader
	jwt      *auth.Manager
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := config.Config{
		Env:        "test",
		JWTSecret:  "test-secret",
		JWTTTLDays: 7,
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := memory.NewUsersRepo()
	listings := memory.NewListingsRepo()
	listingCache := cache.NewMemory(time.Minute)
	uploader := &fakeUploader{}

	jwt := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL())
	svc := auth.NewService(users, jwt, log)

	router := apphttp.NewRouter(apphttp.Deps{
		Cfg: cfg,
		Log: log,

		Auth:     handlers.NewAuthHandler(svc, cfg),
		Users:    handlers.NewUsersHandler(users, listings, cfg),
		Listings: handlers.NewListingsHandler(listings, listingCache, nil),
		Upload:   handlers.NewUploadHandler(uploader, nil),
		Health:   handlers.NewHealthHandler(nil, nil),

		AuthMW: middlewares.NewAuthMiddleware(jwt, log),
	})

	return &testApp{
		router:   router,
		users:    users,
		listings: listings,
		cache:    listingCache,
		uploader: uploader,
		jwt:      jwt,
	}
}

func (a *testApp) do(t *testing.T, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader

	if body != nil {
		b, err := json.Marshal(body)

		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}

		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	return rec
}

// signUp provisions an account through the public endpoint and hands back
// the session cookie plus the user id.
func (a *testApp) signUp(t *testing.T, name, email, password string) (*http.Cookie, string) {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/auth/signup", gin.H{
		"name":     name,
		"email":    email,
		"password": password,
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}

	cookie := sessionCookie(t, rec)

	var body struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	mustReadJSON(t, rec, &body)

	return cookie, body.User.ID
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == middlewares.CookieName {
			return c
		}
	}

	t.Fatalf("response carries no %s cookie", middlewares.CookieName)
	return nil
}

func mustReadJSON(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// errorCode digs the machine-readable code out of the error envelope.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	mustReadJSON(t, rec, &body)

	return body.Error.Code
}

func validListingBody() gin.H {
	return gin.H{
		"name":         "Sunny loft near the park",
		"description":  "Top floor, lots of light.",
		"address":      "12 Main St",
		"type":         "rent",
		"parking":      true,
		"furnished":    true,
		"offer":        false,
		"bedrooms":     2,
		"bathrooms":    1,
		"regularPrice": 1800,
	}
}
