package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/TheOksigen/autopart-backend/internal/models"
)

// Helper to setup test router
func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.Error {
	t.Helper()
	var resp models.ErrorResponse
	decodeBody(t, w, &resp)
	require.False(t, resp.Success)
	return resp.Error
}

// fakeImageStore hands out sequential hosted URLs
type fakeImageStore struct {
	mu        sync.Mutex
	uploaded  []string
	deleted   []string
	uploadErr error
	deleteErr error
}

func (f *fakeImageStore) Upload(_ context.Context, source string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploaded = append(f.uploaded, source)
	return fmt.Sprintf("https://cdn.test/product-images/%d.jpg", len(f.uploaded)), nil
}

func (f *fakeImageStore) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return f.deleteErr
}

type recordedEvent struct {
	kind    string
	product *models.Product
	changed []string
}

// fakeProductEvents records published product events
type fakeProductEvents struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (f *fakeProductEvents) record(kind string, p *models.Product, changed []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{kind: kind, product: p, changed: changed})
	return f.err
}

func (f *fakeProductEvents) PublishProductCreated(_ context.Context, p *models.Product) error {
	return f.record("created", p, nil)
}

func (f *fakeProductEvents) PublishProductUpdated(_ context.Context, p *models.Product, changed []string) error {
	return f.record("updated", p, changed)
}

func (f *fakeProductEvents) PublishProductDeleted(_ context.Context, p *models.Product) error {
	return f.record("deleted", p, nil)
}

var errBoom = errors.New("boom")
