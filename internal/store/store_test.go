package store

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"github.com/alinme/docsign/internal/field"
	"github.com/alinme/docsign/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)
	s, err := New(db)
	require.NoError(t, err)
	return s
}

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func TestDocumentRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	doc := &model.Document{
		ID:          "d1",
		OwnerEmail:  "owner@example.com",
		Name:        "contract.pdf",
		StoragePath: "docs/d1/contract.pdf",
		Status:      model.DocumentPending,
		Signers: []model.Signer{
			{ID: "s1", Name: "Ada", Email: "ada@example.com", Status: model.SignerPending},
		},
		SignCoordinates: []field.Coordinate{
			{ID: "f1", Type: "signature", SignerID: "s1", XPct: fptr(0.7), YPct: fptr(0.8), PageNum: iptr(1)},
		},
	}
	require.NoError(t, s.CreateDocument(ctx, doc))

	got, err := s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", got.OwnerEmail)
	require.Len(t, got.Signers, 1)
	assert.Equal(t, model.SignerPending, got.Signers[0].Status)
	require.Len(t, got.SignCoordinates, 1)
	assert.Equal(t, 0.7, *got.SignCoordinates[0].XPct)

	got.Status = model.DocumentCompleted
	got.StoragePath = "signed/docs/d1/contract.pdf"
	require.NoError(t, s.UpdateDocument(ctx, got))

	again, err := s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, model.DocumentCompleted, again.Status)
	assert.Equal(t, "signed/docs/d1/contract.pdf", again.StoragePath)
}

func TestGetDocumentMissing(t *testing.T) {
	s := testStore(t)
	_, err := s.GetDocument(context.Background(), "nope")
	assert.Error(t, err)
}

func TestListAndDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		require.NoError(t, s.CreateDocument(ctx, &model.Document{
			ID: id, OwnerEmail: "o@example.com", Name: id, StoragePath: id, Status: model.DocumentPending,
		}))
	}
	require.NoError(t, s.CreateDocument(ctx, &model.Document{
		ID: "c", OwnerEmail: "other@example.com", Name: "c", StoragePath: "c", Status: model.DocumentPending,
	}))

	docs, err := s.ListDocumentsByOwner(ctx, "o@example.com")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	require.NoError(t, s.DeleteDocument(ctx, "a"))
	docs, err = s.ListDocumentsByOwner(ctx, "o@example.com")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestTemplateRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	tpl := &model.Template{
		ID: "t1", OwnerEmail: "o@example.com", Name: "nda", StoragePath: "tpl/t1/nda.pdf",
		Signers: []model.Signer{{ID: "role1", Name: "Client"}},
	}
	require.NoError(t, s.CreateTemplate(ctx, tpl))

	got, err := s.GetTemplate(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "nda", got.Name)
	require.Len(t, got.Signers, 1)

	tpls, err := s.ListTemplatesByOwner(ctx, "o@example.com")
	require.NoError(t, err)
	assert.Len(t, tpls, 1)

	require.NoError(t, s.DeleteTemplate(ctx, "t1"))
	_, err = s.GetTemplate(ctx, "t1")
	assert.Error(t, err)
}
