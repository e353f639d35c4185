package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/marketplace-api/internal/model"
	"github.com/iliyamo/marketplace-api/internal/repository"
)

func newReviewHandler(t *testing.T) (*ReviewHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	h := NewReviewHandler(repository.NewReviewRepo(db), repository.NewProductRepo(db))
	return h, mock
}

// The insert and the rating recompute must share one transaction.
func TestCreateReviewCommitsInsertAndRecomputeTogether(t *testing.T) {
	quiet(t)
	h, mock := newReviewHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta(qSelectProductByID)).WithArgs(uint64(2)).
		WillReturnRows(productRow(2, 7, 0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reviews (user_id, product_id, comment, grade) VALUES (?,?,?,?)")).
		WithArgs(uint64(5), uint64(2), nil, 4).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(regexp.QuoteMeta(qRecomputeRating)).
		WithArgs(uint64(2), uint64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	// rating read for the post-commit event
	mock.ExpectQuery(regexp.QuoteMeta(qSelectProductByID)).WithArgs(uint64(2)).
		WillReturnRows(productRow(2, 7, 4))

	c, rec := newRequest(http.MethodPost, "/v1/reviews",
		`{"product_id":2,"grade":4}`, 5, model.RoleBuyer)
	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %d, want 201: %s", rec.Code, rec.Body)
	}

	var resp reviewResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ID != 11 || resp.Grade != 4 || resp.ProductID != 2 {
		t.Errorf("resp = %+v, want id 11 grade 4 product 2", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateReviewRejectsGradeOutOfRange(t *testing.T) {
	h, mock := newReviewHandler(t)

	for _, grade := range []int{0, 6, -1} {
		body, _ := json.Marshal(map[string]any{"product_id": 2, "grade": grade})
		c, rec := newRequest(http.MethodPost, "/v1/reviews", string(body), 5, model.RoleBuyer)
		if err := h.Create(c); err != nil {
			t.Fatalf("Create(grade=%d): %v", grade, err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("grade %d: code = %d, want 400", grade, rec.Code)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database activity: %v", err)
	}
}

func TestCreateReviewForMissingProduct(t *testing.T) {
	h, mock := newReviewHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta(qSelectProductByID)).WithArgs(uint64(99)).
		WillReturnError(sql.ErrNoRows)

	c, rec := newRequest(http.MethodPost, "/v1/reviews",
		`{"product_id":99,"grade":3}`, 5, model.RoleBuyer)
	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", rec.Code)
	}
}

// A recompute failure aborts the whole creation; no half-committed
// review may survive.
func TestCreateReviewRollsBackOnRecomputeFailure(t *testing.T) {
	h, mock := newReviewHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta(qSelectProductByID)).WithArgs(uint64(2)).
		WillReturnRows(productRow(2, 7, 0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reviews (user_id, product_id, comment, grade) VALUES (?,?,?,?)")).
		WithArgs(uint64(5), uint64(2), nil, 4).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(regexp.QuoteMeta(qRecomputeRating)).
		WithArgs(uint64(2), uint64(2)).WillReturnError(errors.New("deadlock found"))
	mock.ExpectRollback()

	c, rec := newRequest(http.MethodPost, "/v1/reviews",
		`{"product_id":2,"grade":4}`, 5, model.RoleBuyer)
	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want 500", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDeleteReviewByAuthor(t *testing.T) {
	quiet(t)
	h, mock := newReviewHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta(qSelectReviewByID)).WithArgs(uint64(11)).
		WillReturnRows(reviewRow(11, 5, 2, 4))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reviews SET is_active=0 WHERE id=? AND is_active=1")).
		WithArgs(uint64(11)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(qRecomputeRating)).
		WithArgs(uint64(2), uint64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta(qSelectProductByID)).WithArgs(uint64(2)).
		WillReturnRows(productRow(2, 7, 0))

	c, rec := newRequest(http.MethodDelete, "/v1/reviews/11", "", 5, model.RoleBuyer)
	c.SetParamNames("id")
	c.SetParamValues("11")
	if err := h.Delete(c); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200: %s", rec.Code, rec.Body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// A buyer who is not the author gets 403, but only after the review's
// existence is confirmed.
func TestDeleteReviewByOtherBuyer(t *testing.T) {
	h, mock := newReviewHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta(qSelectReviewByID)).WithArgs(uint64(11)).
		WillReturnRows(reviewRow(11, 5, 2, 4))

	c, rec := newRequest(http.MethodDelete, "/v1/reviews/11", "", 6, model.RoleBuyer)
	c.SetParamNames("id")
	c.SetParamValues("11")
	if err := h.Delete(c); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("code = %d, want 403", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// An already-retracted review reads as missing, so a second delete is a
// 404 rather than a 403, even for a non-author.
func TestDeleteRetractedReviewIsNotFound(t *testing.T) {
	h, mock := newReviewHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta(qSelectReviewByID)).WithArgs(uint64(11)).
		WillReturnError(sql.ErrNoRows)

	c, rec := newRequest(http.MethodDelete, "/v1/reviews/11", "", 6, model.RoleBuyer)
	c.SetParamNames("id")
	c.SetParamValues("11")
	if err := h.Delete(c); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", rec.Code)
	}
}
