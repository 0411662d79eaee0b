package vectorindex

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGVectorEnsureCollection(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE EXTENSION IF NOT EXISTS vector`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`embedding vector(384) NOT NULL`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE INDEX IF NOT EXISTS page_embeddings_site_idx`)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := NewPGVector(db).EnsureCollection(context.Background(), "website_content", 384); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGVectorSearchFiltersBySite(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"site_id", "page_id", "url", "title", "content", "content_length", "score"}).
		AddRow(int64(3), int64(10), "https://x/a", "A", "alpha", 5, 0.91).
		AddRow(int64(3), int64(11), "https://x/b", "B", "beta", 4, 0.42)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM page_embeddings`)).
		WithArgs(sqlmock.AnyArg(), "website_content", int64(3), 2).
		WillReturnRows(rows)

	hits, err := NewPGVector(db).Search(context.Background(), "website_content", []float32{0.1, 0.2}, 3, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 || hits[0].PageID != 10 || hits[0].Score < 0.9 {
		t.Fatalf("unexpected hits %#v", hits)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGVectorDeleteBySite(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM page_embeddings WHERE collection = $1 AND site_id = $2`)).
		WithArgs("website_content", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	if err := NewPGVector(db).DeleteBySite(context.Background(), "website_content", 5); err != nil {
		t.Fatalf("DeleteBySite: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
