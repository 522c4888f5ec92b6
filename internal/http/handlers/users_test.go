package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/casahub/casahub/internal/security"
	"github.com/gin-gonic/gin"
)

func TestGetUserIsPublic(t *testing.T) {
	app := newTestApp(t)

	_, id := app.signUp(t, "Ana", "ana@example.com", "sup3rsecret")

	rec := app.do(t, http.MethodGet, "/api/user/"+id, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		User struct {
			Name string `json:"name"`
		} `json:"user"`
	}
	mustReadJSON(t, rec, &body)

	if body.User.Name != "Ana" {
		t.Errorf("name = %q, want %q", body.User.Name, "Ana")
	}
}

func TestGetUserNotFound(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/user/no-such-id", nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestUpdateUserRequiresOwnership(t *testing.T) {
	app := newTestApp(t)

	anaCookie, _ := app.signUp(t, "Ana", "ana@example.com", "sup3rsecret")
	_, bobID := app.signUp(t, "Bob", "bob@example.com", "alsosecret")

	rec := app.do(t, http.MethodPut, "/api/user/update/"+bobID, gin.H{
		"name": "Hijacked",
	}, anaCookie)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 (body %s)", rec.Code, rec.Body.String())
	}

	u, err := app.users.GetByID(context.Background(), bobID)

	if err != nil {
		t.Fatalf("victim record missing: %v", err)
	}

	if u.Name != "Bob" {
		t.Errorf("victim name = %q, record was modified", u.Name)
	}
}

func TestUpdateUserRequiresSession(t *testing.T) {
	app := newTestApp(t)

	_, id := app.signUp(t, "Ana", "ana@example.com", "sup3rsecret")

	rec := app.do(t, http.MethodPut, "/api/user/update/"+id, gin.H{"name": "New"})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestUpdateUser(t *testing.T) {
	app := newTestApp(t)

	cookie, id := app.signUp(t, "Ana", "ana@example.com", "sup3rsecret")

	rec := app.do(t, http.MethodPut, "/api/user/update/"+id, gin.H{
		"name":     "Ana Maria",
		"password": "newpassword1",
	}, cookie)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		User struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"user"`
	}
	mustReadJSON(t, rec, &body)

	if body.User.Name != "Ana Maria" {
		t.Errorf("name = %q, want %q", body.User.Name, "Ana Maria")
	}

	if body.User.Email != "ana@example.com" {
		t.Errorf("email = %q, fields omitted from the payload must survive", body.User.Email)
	}

	u, err := app.users.GetByID(context.Background(), id)

	if err != nil {
		t.Fatalf("record missing after update: %v", err)
	}

	if err := security.CheckPassword(u.PasswordHash, "newpassword1"); err != nil {
		t.Error("new password does not verify against stored hash")
	}

	if err := security.CheckPassword(u.PasswordHash, "sup3rsecret"); err == nil {
		t.Error("old password still verifies after change")
	}
}

func TestUpdateUserEmailConflict(t *testing.T) {
	app := newTestApp(t)

	cookie, id := app.signUp(t, "Ana", "ana@example.com", "sup3rsecret")
	app.signUp(t, "Bob", "bob@example.com", "alsosecret")

	rec := app.do(t, http.MethodPut, "/api/user/update/"+id, gin.H{
		"email": "bob@example.com",
	}, cookie)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (body %s)", rec.Code, rec.Body.String())
	}

	if code := errorCode(t, rec); code != "email_taken" {
		t.Errorf("error code = %q, want %q", code, "email_taken")
	}
}

func TestDeleteUserClearsCookie(t *testing.T) {
	app := newTestApp(t)

	cookie, id := app.signUp(t, "Ana", "ana@example.com", "sup3rsecret")

	rec := app.do(t, http.MethodDelete, "/api/user/delete/"+id, nil, cookie)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	cleared := sessionCookie(t, rec)

	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Error("delete must clear the session cookie")
	}

	if app.users.Count() != 0 {
		t.Errorf("user count = %d, want 0", app.users.Count())
	}
}

func TestGetUserListingsOwnerOnly(t *testing.T) {
	app := newTestApp(t)

	anaCookie, anaID := app.signUp(t, "Ana", "ana@example.com", "sup3rsecret")
	bobCookie, _ := app.signUp(t, "Bob", "bob@example.com", "alsosecret")

	created := app.do(t, http.MethodPost, "/api/listing/create", validListingBody(), anaCookie)

	if created.Code != http.StatusCreated {
		t.Fatalf("listing create status = %d (body %s)", created.Code, created.Body.String())
	}

	rec := app.do(t, http.MethodGet, "/api/user/listings/"+anaID, nil, anaCookie)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Count int `json:"count"`
	}
	mustReadJSON(t, rec, &body)

	if body.Count != 1 {
		t.Errorf("count = %d, want 1", body.Count)
	}

	rec = app.do(t, http.MethodGet, "/api/user/listings/"+anaID, nil, bobCookie)

	if rec.Code != http.StatusForbidden {
		t.Errorf("other user reading listings: status = %d, want 403", rec.Code)
	}
}
