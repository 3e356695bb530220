package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"github.com/alinme/docsign/internal/blob"
	"github.com/alinme/docsign/internal/model"
	"github.com/alinme/docsign/internal/pdf/pdftest"
	"github.com/alinme/docsign/internal/signing"
	"github.com/alinme/docsign/internal/store"
)

func newTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)
	st, err := store.New(db)
	require.NoError(t, err)

	links := NewLinkIssuer("test-secret", time.Hour, "https://sign.example.com")
	svc := signing.NewService(st, blob.NewMemoryStore(), signing.Options{Link: links.URL})
	srv := New(svc, links)
	return srv, srv.Router()
}

func uploadRequest(t *testing.T, url string, meta string, pdfBytes []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fw, err := w.CreateFormFile("file", "contract.pdf")
	require.NoError(t, err)
	_, err = fw.Write(pdfBytes)
	require.NoError(t, err)
	if meta != "" {
		require.NoError(t, w.WriteField("meta", meta))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Owner-Email", "owner@example.com")
	return req
}

func createTestDocument(t *testing.T, router *gin.Engine) model.Document {
	t.Helper()
	meta := `{
		"signers": [{"id":"s1","name":"Ada","email":"ada@example.com"}],
		"signCoordinates": [{"id":"f1","type":"signature","signerId":"s1","xPct":0.7,"yPct":0.8,"pageNum":1}]
	}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/v1/documents", meta, pdftest.Letter()))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var doc model.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	return doc
}

func TestHealthz(t *testing.T) {
	_, router := newTestServer(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAndGetDocument(t *testing.T) {
	_, router := newTestServer(t)
	doc := createTestDocument(t, router)
	assert.Equal(t, model.DocumentPending, doc.Status)
	require.Len(t, doc.Signers, 1)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+doc.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, doc.ID, got.ID)
	require.Len(t, got.SignCoordinates, 1)
	assert.Equal(t, "f1", got.SignCoordinates[0].ID)
}

func TestCreateDocumentRejectsNonPDF(t *testing.T) {
	_, router := newTestServer(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/v1/documents", "", []byte("not a pdf")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateDocumentRequiresOwner(t *testing.T) {
	_, router := newTestServer(t)
	req := uploadRequest(t, "/api/v1/documents", "", pdftest.Letter())
	req.Header.Del("X-Owner-Email")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignWithLinkToken(t *testing.T) {
	srv, router := newTestServer(t)
	doc := createTestDocument(t, router)

	token, err := srv.links.Token(doc.ID, "s1")
	require.NoError(t, err)

	payload := map[string]any{
		"signatureImageBase64": base64.StdEncoding.EncodeToString(pdftest.SignaturePNG(200, 80)),
		"fieldValues":          map[string]any{},
	}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+doc.ID+"/sign", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res signing.SignResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Completed)
	assert.Equal(t, model.DocumentCompleted, res.Document.Status)
}

func TestSignRejectsMissingToken(t *testing.T) {
	_, router := newTestServer(t)
	doc := createTestDocument(t, router)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+doc.ID+"/sign",
		bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignRejectsForeignDocumentToken(t *testing.T) {
	srv, router := newTestServer(t)
	docA := createTestDocument(t, router)
	docB := createTestDocument(t, router)

	// Token scoped to document B must not open document A.
	token, err := srv.links.Token(docB.ID, "s1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+docA.ID+"/sign",
		bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSignIncompleteSubmission(t *testing.T) {
	srv, router := newTestServer(t)
	doc := createTestDocument(t, router)

	token, err := srv.links.Token(doc.ID, "s1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+doc.ID+"/sign",
		bytes.NewReader([]byte(`{"fieldValues":{}}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "f1")
}

func TestSignerLinkOwnerOnly(t *testing.T) {
	_, router := newTestServer(t)
	doc := createTestDocument(t, router)

	url := fmt.Sprintf("/api/v1/documents/%s/signers/s1/link", doc.ID)

	req := httptest.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("X-Owner-Email", "owner@example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://sign.example.com/sign/"+doc.ID)

	req = httptest.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("X-Owner-Email", "intruder@example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDownloadURL(t *testing.T) {
	_, router := newTestServer(t)
	doc := createTestDocument(t, router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+doc.ID+"/url", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "memory://")
}

func TestTemplateLifecycle(t *testing.T) {
	_, router := newTestServer(t)

	meta := `{"signers":[{"id":"role1","name":"Client","email":"c@example.com"}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/v1/templates", meta, pdftest.Letter()))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var tpl model.Template
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tpl))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/templates/"+tpl.ID+"/instantiate",
		bytes.NewReader([]byte(`{"name":"acme.pdf"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Owner-Email", "owner@example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var doc model.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "acme.pdf", doc.Name)
	require.Len(t, doc.Signers, 1)
	assert.NotEqual(t, "role1", doc.Signers[0].ID)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/templates/"+tpl.ID, nil)
	req.Header.Set("X-Owner-Email", "owner@example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLinkIssuerRoundTrip(t *testing.T) {
	links := NewLinkIssuer("secret", time.Hour, "https://sign.example.com")

	token, err := links.Token("doc1", "signer1")
	require.NoError(t, err)

	docID, signerID, err := links.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "doc1", docID)
	assert.Equal(t, "signer1", signerID)

	// A token minted with a different secret fails verification.
	other := NewLinkIssuer("other", time.Hour, "")
	badToken, err := other.Token("doc1", "signer1")
	require.NoError(t, err)
	_, _, err = links.Verify(badToken)
	assert.Error(t, err)

	// Expired tokens fail.
	expired := NewLinkIssuer("secret", -time.Minute, "")
	expToken, err := expired.Token("doc1", "signer1")
	require.NoError(t, err)
	_, _, err = links.Verify(expToken)
	assert.Error(t, err)
}
