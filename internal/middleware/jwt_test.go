package middleware

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-api/internal/auth"
	"github.com/iliyamo/marketplace-api/internal/model"
	"github.com/iliyamo/marketplace-api/internal/repository"
)

const selectActiveUserByID = "SELECT id,email,password_hash,role,is_active,created_at,updated_at FROM users WHERE id=? AND is_active=1 LIMIT 1"

func activeUserRow(id uint64, email string, role model.Role) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "is_active", "created_at", "updated_at"}).
		AddRow(id, email, "$2a$04$hash", role.String(), true, now, now)
}

func runJWTAuth(t *testing.T, mock sqlmock.Sqlmock, users *repository.UserRepo, ts *auth.TokenService, header string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	h := JWTAuth(ts, users)(func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec, reached
}

func TestJWTAuthResolvesActiveAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	users := repository.NewUserRepo(db)
	ts := auth.NewTokenService("test-secret", 15, 7)

	u := model.User{ID: 7, Email: "seller@example.com", Role: model.RoleSeller}
	raw, err := ts.IssueAccess(u)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	mock.ExpectQuery(regexp.QuoteMeta(selectActiveUserByID)).WithArgs(uint64(7)).
		WillReturnRows(activeUserRow(7, "seller@example.com", model.RoleSeller))

	rec, reached := runJWTAuth(t, mock, users, ts, "Bearer "+raw)
	if !reached || rec.Code != http.StatusOK {
		t.Fatalf("reached=%v code=%d, want handler reached with 200", reached, rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestJWTAuthRejects(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	users := repository.NewUserRepo(db)
	ts := auth.NewTokenService("test-secret", 15, 7)

	u := model.User{ID: 7, Email: "seller@example.com", Role: model.RoleSeller}
	refresh, err := ts.IssueRefresh(u)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer garbage"},
		// a perfectly valid refresh token must not authenticate a request
		{"refresh kind", "Bearer " + refresh},
	}
	for _, tc := range cases {
		rec, reached := runJWTAuth(t, mock, users, ts, tc.header)
		if reached || rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: reached=%v code=%d, want 401 without reaching handler", tc.name, reached, rec.Code)
		}
	}
}

func TestJWTAuthRejectsDeactivatedAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	users := repository.NewUserRepo(db)
	ts := auth.NewTokenService("test-secret", 15, 7)

	// token still unexpired, but the account row is gone from the active set
	raw, err := ts.IssueAccess(model.User{ID: 9, Email: "gone@example.com", Role: model.RoleBuyer})
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	mock.ExpectQuery(regexp.QuoteMeta(selectActiveUserByID)).WithArgs(uint64(9)).
		WillReturnError(sql.ErrNoRows)

	rec, reached := runJWTAuth(t, mock, users, ts, "Bearer "+raw)
	if reached || rec.Code != http.StatusUnauthorized {
		t.Errorf("reached=%v code=%d, want 401", reached, rec.Code)
	}
}
