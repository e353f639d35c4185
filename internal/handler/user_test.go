package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/marketplace-api/internal/config"
	"github.com/iliyamo/marketplace-api/internal/model"
	"github.com/iliyamo/marketplace-api/internal/repository"
)

func newUserHandler(t *testing.T) (*UserHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	h := NewUserHandler(config.Config{BcryptCost: 4},
		repository.NewUserRepo(db),
		repository.NewProductRepo(db),
		repository.NewReviewRepo(db),
		repository.NewCategoryRepo(db))
	return h, mock
}

func TestDeactivateSellerCascadesToProducts(t *testing.T) {
	quiet(t)
	h, mock := newUserHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta(qSelectUserByID)).WithArgs(uint64(7)).
		WillReturnRows(userRow(7, "seller@example.com", model.RoleSeller, "x"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_active=0 WHERE id=? AND is_active=1")).
		WithArgs(uint64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET is_active=0 WHERE seller_id=? AND is_active=1")).
		WithArgs(uint64(7)).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	c, rec := newRequest(http.MethodDelete, "/v1/users/7", "", 1, model.RoleAdmin)
	c.SetParamNames("id")
	c.SetParamValues("7")
	if err := h.Deactivate(c); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200: %s", rec.Code, rec.Body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// A buyer's retraction must recompute every product the buyer had
// reviewed, and the affected ids must be gathered before the reviews
// flip inactive.
func TestDeactivateBuyerRecomputesAffectedProducts(t *testing.T) {
	quiet(t)
	h, mock := newUserHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta(qSelectUserByID)).WithArgs(uint64(5)).
		WillReturnRows(userRow(5, "buyer@example.com", model.RoleBuyer, "x"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_active=0 WHERE id=? AND is_active=1")).
		WithArgs(uint64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT product_id FROM reviews WHERE user_id=? AND is_active=1")).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}).AddRow(2).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reviews SET is_active=0 WHERE user_id=? AND is_active=1")).
		WithArgs(uint64(5)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(qRecomputeRating)).
		WithArgs(uint64(2), uint64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(qRecomputeRating)).
		WithArgs(uint64(3), uint64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := newRequest(http.MethodDelete, "/v1/users/5", "", 5, model.RoleBuyer)
	c.SetParamNames("id")
	c.SetParamValues("5")
	if err := h.Deactivate(c); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200: %s", rec.Code, rec.Body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// Non-admins may only deactivate themselves; the check happens before
// any database work.
func TestDeactivateForbiddenForOtherAccounts(t *testing.T) {
	h, mock := newUserHandler(t)

	c, rec := newRequest(http.MethodDelete, "/v1/users/9", "", 5, model.RoleBuyer)
	c.SetParamNames("id")
	c.SetParamValues("9")
	if err := h.Deactivate(c); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("code = %d, want 403", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database activity: %v", err)
	}
}

func TestDeactivateUnknownUser(t *testing.T) {
	h, mock := newUserHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta(qSelectUserByID)).WithArgs(uint64(42)).
		WillReturnError(sql.ErrNoRows)

	c, rec := newRequest(http.MethodDelete, "/v1/users/42", "", 1, model.RoleAdmin)
	c.SetParamNames("id")
	c.SetParamValues("42")
	if err := h.Deactivate(c); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// A failure anywhere in the cascade rolls the whole thing back; the
// account stays active.
func TestDeactivateCascadeFailureRollsBack(t *testing.T) {
	h, mock := newUserHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta(qSelectUserByID)).WithArgs(uint64(7)).
		WillReturnRows(userRow(7, "seller@example.com", model.RoleSeller, "x"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_active=0 WHERE id=? AND is_active=1")).
		WithArgs(uint64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET is_active=0 WHERE seller_id=? AND is_active=1")).
		WithArgs(uint64(7)).WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	c, rec := newRequest(http.MethodDelete, "/v1/users/7", "", 1, model.RoleAdmin)
	c.SetParamNames("id")
	c.SetParamValues("7")
	if err := h.Deactivate(c); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want 500", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
