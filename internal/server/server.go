// Package server exposes the signing service over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/alinme/docsign/internal/burn"
	"github.com/alinme/docsign/internal/field"
	"github.com/alinme/docsign/internal/model"
	"github.com/alinme/docsign/internal/signing"
)

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	svc   *signing.Service
	links *LinkIssuer
}

// New creates the HTTP server facade.
func New(svc *signing.Service, links *LinkIssuer) *Server {
	return &Server{svc: svc, links: links}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/api/v1")

	docs := api.Group("/documents")
	docs.POST("", s.createDocument)
	docs.GET("", s.listDocuments)
	docs.GET("/:id", s.getDocument)
	docs.DELETE("/:id", s.deleteDocument)
	docs.POST("/:id/void", s.voidDocument)
	docs.GET("/:id/url", s.downloadURL)
	docs.GET("/:id/signers/:signerId/link", s.signerLink)
	docs.POST("/:id/sign", SignerAuth(s.links), s.sign)

	tpls := api.Group("/templates")
	tpls.POST("", s.createTemplate)
	tpls.GET("", s.listTemplates)
	tpls.GET("/:id", s.getTemplate)
	tpls.DELETE("/:id", s.deleteTemplate)
	tpls.POST("/:id/instantiate", s.instantiateTemplate)

	return r
}

// ownerEmail extracts the acting owner's identity. Authentication proper is
// an upstream collaborator; by the time requests reach this service a
// trusted proxy has pinned the header.
func ownerEmail(c *gin.Context) (string, bool) {
	email := c.GetHeader("X-Owner-Email")
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing X-Owner-Email"})
		return "", false
	}
	return email, true
}

type uploadMeta struct {
	Name        string             `json:"name"`
	Signers     []model.Signer     `json:"signers"`
	Coordinates []field.Coordinate `json:"signCoordinates"`
}

func readUpload(c *gin.Context) (meta uploadMeta, pdfBytes []byte, ok bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return meta, nil, false
	}
	defer file.Close()

	pdfBytes, err = io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return meta, nil, false
	}

	if raw := c.PostForm("meta"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed meta: " + err.Error()})
			return meta, nil, false
		}
	}
	if meta.Name == "" {
		meta.Name = header.Filename
	}
	return meta, pdfBytes, true
}

func (s *Server) createDocument(c *gin.Context) {
	owner, ok := ownerEmail(c)
	if !ok {
		return
	}
	meta, pdfBytes, ok := readUpload(c)
	if !ok {
		return
	}

	doc, err := s.svc.CreateDocument(c.Request.Context(), signing.CreateDocumentInput{
		OwnerEmail:  owner,
		Name:        meta.Name,
		PDF:         pdfBytes,
		Coordinates: meta.Coordinates,
		Signers:     meta.Signers,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (s *Server) listDocuments(c *gin.Context) {
	owner, ok := ownerEmail(c)
	if !ok {
		return
	}
	docs, err := s.svc.ListDocuments(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (s *Server) getDocument(c *gin.Context) {
	doc, err := s.svc.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) deleteDocument(c *gin.Context) {
	owner, ok := ownerEmail(c)
	if !ok {
		return
	}
	if err := s.svc.Delete(c.Request.Context(), c.Param("id"), owner); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) voidDocument(c *gin.Context) {
	owner, ok := ownerEmail(c)
	if !ok {
		return
	}
	doc, err := s.svc.Void(c.Request.Context(), c.Param("id"), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) downloadURL(c *gin.Context) {
	url, err := s.svc.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if url == "" {
		c.JSON(http.StatusOK, gin.H{"url": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (s *Server) signerLink(c *gin.Context) {
	owner, ok := ownerEmail(c)
	if !ok {
		return
	}
	doc, err := s.svc.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if doc.OwnerEmail != owner {
		writeError(c, signing.ErrNotOwner)
		return
	}
	if doc.SignerByID(c.Param("signerId")) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown signer"})
		return
	}

	url, err := s.links.URL(doc.ID, c.Param("signerId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

type signBody struct {
	SignatureImageBase64 string         `json:"signatureImageBase64,omitempty"`
	FieldValues          map[string]any `json:"fieldValues,omitempty"`
}

func (s *Server) sign(c *gin.Context) {
	var body signBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed submission: " + err.Error()})
		return
	}

	res, err := s.svc.Sign(c.Request.Context(), signing.SignRequest{
		DocumentID:           c.GetString(ctxDocumentID),
		SignerID:             c.GetString(ctxSignerID),
		SignatureImageBase64: body.SignatureImageBase64,
		FieldValues:          body.FieldValues,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) createTemplate(c *gin.Context) {
	owner, ok := ownerEmail(c)
	if !ok {
		return
	}
	meta, pdfBytes, ok := readUpload(c)
	if !ok {
		return
	}

	tpl, err := s.svc.CreateTemplate(c.Request.Context(), signing.CreateTemplateInput{
		OwnerEmail:  owner,
		Name:        meta.Name,
		PDF:         pdfBytes,
		Coordinates: meta.Coordinates,
		Signers:     meta.Signers,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

func (s *Server) listTemplates(c *gin.Context) {
	owner, ok := ownerEmail(c)
	if !ok {
		return
	}
	tpls, err := s.svc.ListTemplates(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": tpls})
}

func (s *Server) getTemplate(c *gin.Context) {
	tpl, err := s.svc.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (s *Server) deleteTemplate(c *gin.Context) {
	owner, ok := ownerEmail(c)
	if !ok {
		return
	}
	if err := s.svc.DeleteTemplate(c.Request.Context(), c.Param("id"), owner); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type instantiateBody struct {
	Name string `json:"name"`
}

func (s *Server) instantiateTemplate(c *gin.Context) {
	owner, ok := ownerEmail(c)
	if !ok {
		return
	}
	var body instantiateBody
	_ = c.ShouldBindJSON(&body)

	doc, err := s.svc.InstantiateTemplate(c.Request.Context(), c.Param("id"), owner, body.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// writeError maps domain errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var verr *field.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":           "submission incomplete",
			"missingFieldIds": verr.MissingFieldIDs,
		})
	case errors.Is(err, burn.ErrImageDecode):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "signature image undecodable"})
	case errors.Is(err, burn.ErrSourceUnreadable):
		// Possibly a transient storage failure; the client may retry.
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "document unavailable, retry later"})
	case errors.Is(err, signing.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, signing.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "only the owner may do this"})
	case errors.Is(err, signing.ErrDocumentClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "document no longer accepts signatures"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
