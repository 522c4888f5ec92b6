package handlers_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
)

func multipartImage(t *testing.T, fieldName, fileName, contentType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+fieldName+`"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)

	if err != nil {
		t.Fatalf("create multipart part: %v", err)
	}

	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write multipart payload: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	return &buf, w.FormDataContentType()
}

func (a *testApp) doUpload(t *testing.T, body *bytes.Buffer, contentType string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	return rec
}

func TestUploadStoresImage(t *testing.T) {
	app := newTestApp(t)

	cookie, _ := app.signUp(t, "Ana", "ana@example.com", "sup3rsecret")

	var gotKey, gotType string

	app.uploader.uploadFn = func(_ context.Context, key, contentType string, body io.Reader) (string, error) {
		gotKey = key
		gotType = contentType

		io.Copy(io.Discard, body)

		return "https://media.test/" + key, nil
	}

	body, ct := multipartImage(t, "image", "loft.jpg", "image/jpeg", []byte("jpeg-bytes"))

	rec := app.doUpload(t, body, ct, cookie)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool   `json:"success"`
		URL     string `json:"url"`
	}
	mustReadJSON(t, rec, &resp)

	if !resp.Success || resp.URL == "" {
		t.Errorf("response = %+v, want success with a url", resp)
	}

	if gotType != "image/jpeg" {
		t.Errorf("stored content type = %q, want image/jpeg", gotType)
	}

	if !strings.HasPrefix(gotKey, "uploads/") || !strings.HasSuffix(gotKey, ".jpg") {
		t.Errorf("storage key = %q, want uploads/.../*.jpg", gotKey)
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	app := newTestApp(t)

	cookie, _ := app.signUp(t, "Ana", "ana@example.com", "sup3rsecret")

	body, ct := multipartImage(t, "image", "payload.html", "text/html", []byte("<script>"))

	rec := app.doUpload(t, body, ct, cookie)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestUploadRejectsMissingFile(t *testing.T) {
	app := newTestApp(t)

	cookie, _ := app.signUp(t, "Ana", "ana@example.com", "sup3rsecret")

	body, ct := multipartImage(t, "wrong-field", "loft.jpg", "image/jpeg", []byte("jpeg-bytes"))

	rec := app.doUpload(t, body, ct, cookie)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestUploadRequiresSession(t *testing.T) {
	app := newTestApp(t)

	body, ct := multipartImage(t, "image", "loft.jpg", "image/jpeg", []byte("jpeg-bytes"))

	rec := app.doUpload(t, body, ct, nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 (body %s)", rec.Code, rec.Body.String())
	}
}
