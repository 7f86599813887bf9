package image

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() (http.Handler, *memStore, *memStorage) {
	svc, store, objects := newTestService(false)
	h := NewHandler(svc, 1<<20, zerolog.Nop())
	r := chi.NewRouter()
	r.Route("/api/images", h.Routes)
	return r, store, objects
}

func multipartBody(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postUpload(h http.Handler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/images", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Upload(t *testing.T) {
	h, store, objects := newTestRouter()

	body, ct := multipartBody(t, "file", "aspirin.png", "image/png", pngBytes)
	rec := postUpload(h, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, int64(1), res.ID)
	assert.Regexp(t, `^https://cdn\.example\.com/meds/uploads/[0-9a-f-]{36}-aspirin\.png$`, res.URL)

	keys := objects.keys()
	require.Len(t, keys, 1)
	assert.Equal(t, "image/png", objects.objects[keys[0]].contentType)

	rows, _ := store.List(context.Background())
	require.Len(t, rows, 1)
	assert.Equal(t, "aspirin.png", rows[0].Filename)
}

func TestHandler_UploadWithoutPartContentType(t *testing.T) {
	h, _, objects := newTestRouter()

	body, ct := multipartBody(t, "file", "blob", "", pngBytes)
	rec := postUpload(h, body, ct)
	require.Equal(t, http.StatusOK, rec.Code)

	keys := objects.keys()
	require.Len(t, keys, 1)
	assert.Equal(t, "image/png", objects.objects[keys[0]].contentType)
}

func TestHandler_UploadBadRequests(t *testing.T) {
	h, _, _ := newTestRouter()

	body, ct := multipartBody(t, "image", "a.png", "image/png", pngBytes)
	rec := postUpload(h, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"file is required"}`, rec.Body.String())

	rec = postUpload(h, bytes.NewBufferString(`{"file":"x"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_UploadStorageFailureIs502(t *testing.T) {
	h, _, objects := newTestRouter()
	objects.putErr = errors.New("NoSuchBucket")

	body, ct := multipartBody(t, "file", "a.png", "image/png", pngBytes)
	rec := postUpload(h, body, ct)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"storage write failed"}`, rec.Body.String())
}

func TestHandler_UploadPersistenceFailureIs500(t *testing.T) {
	h, store, objects := newTestRouter()
	store.createErr = errors.New("insert failed")

	body, ct := multipartBody(t, "file", "a.png", "image/png", pngBytes)
	rec := postUpload(h, body, ct)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Len(t, objects.keys(), 1)
}

func TestHandler_GetAndList(t *testing.T) {
	h, _, _ := newTestRouter()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusNotFound, get("/api/images/1").Code)
	assert.Equal(t, http.StatusBadRequest, get("/api/images/x").Code)

	rec := get("/api/images")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	body, ct := multipartBody(t, "file", "a.png", "image/png", pngBytes)
	require.Equal(t, http.StatusOK, postUpload(h, body, ct).Code)

	rec = get("/api/images/1")
	require.Equal(t, http.StatusOK, rec.Code)
	var img Image
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &img))
	assert.Equal(t, "a.png", img.Filename)
	assert.True(t, img.UploadedAt.Equal(fixedNow))

	rec = get("/api/images")
	var all []Image
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 1)
}

func TestHandler_StoreErrorsAre500(t *testing.T) {
	h, store, _ := newTestRouter()
	store.err = errors.New("timeout")

	for _, path := range []string{"/api/images", "/api/images/1"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
	}
}
