package pg

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"

	"tillgate.dev/internal/directory"
)

func TestKeyKVRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	kv := NewKeyKV(db)
	ctx := context.Background()

	mock.ExpectQuery("select value from signing_keys").WithArgs("auth_signing_secret_access").WillReturnRows(sqlmock.NewRows([]string{"value"}))
	if _, ok, err := kv.Get(ctx, "auth_signing_secret_access"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	mock.ExpectExec("insert into signing_keys").WithArgs("auth_signing_secret_access", []byte("secret")).WillReturnResult(sqlmock.NewResult(1, 1))
	if err := kv.Put(ctx, "auth_signing_secret_access", []byte("secret")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	mock.ExpectQuery("select value from signing_keys").WithArgs("auth_signing_secret_access").WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte("secret")))
	value, ok, err := kv.Get(ctx, "auth_signing_secret_access")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(value) != "secret" {
		t.Fatalf("unexpected value: %q", value)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMetaGetMissingNamespace(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select data from principal_meta").WithArgs(int64(7), "auth_sessions").WillReturnRows(sqlmock.NewRows([]string{"data"}))

	store := NewMeta(db)
	values, err := store.Get(context.Background(), 7, "auth_sessions")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected empty map, got %v", values)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMetaPutAndGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := NewMeta(db)
	ctx := context.Background()
	values := map[string]json.RawMessage{
		"jti-1": json.RawMessage(`{"jti":"jti-1"}`),
	}
	doc, _ := json.Marshal(values)

	mock.ExpectExec("insert into principal_meta").WithArgs(int64(7), "auth_sessions", doc).WillReturnResult(sqlmock.NewResult(1, 1))
	if err := store.Put(ctx, 7, "auth_sessions", values); err != nil {
		t.Fatalf("Put: %v", err)
	}

	mock.ExpectQuery("select data from principal_meta").WithArgs(int64(7), "auth_sessions").WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(doc))
	got, err := store.Get(ctx, 7, "auth_sessions")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got["jti-1"]) != `{"jti":"jti-1"}` {
		t.Fatalf("unexpected document: %s", got["jti-1"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func principalRow(t *testing.T, id int64, login, password string, caps []string, disabled bool) *sqlmock.Rows {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	capsRaw, _ := json.Marshal(caps)
	return sqlmock.NewRows([]string{"id", "login", "display_name", "password_hash", "capabilities", "disabled", "created_at"}).
		AddRow(id, login, "Cashier One", string(hash), capsRaw, disabled, time.Now())
}

func TestDirectoryAuthenticate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	dir := NewDirectory(db)
	ctx := context.Background()

	mock.ExpectQuery("select (.+) from principals where lower\\(login\\)").WithArgs("cashier1").
		WillReturnRows(principalRow(t, 7, "cashier1", "till-pass", []string{"manage_sessions"}, false))
	p, err := dir.Authenticate(ctx, "  cashier1 ", "till-pass")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.ID != 7 || !p.HasCapability(directory.CapabilityManageSessions) {
		t.Fatalf("unexpected principal: %+v", p)
	}

	mock.ExpectQuery("select (.+) from principals where lower\\(login\\)").WithArgs("cashier1").
		WillReturnRows(principalRow(t, 7, "cashier1", "till-pass", nil, false))
	if _, err := dir.Authenticate(ctx, "cashier1", "wrong"); err != directory.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	mock.ExpectQuery("select (.+) from principals where lower\\(login\\)").WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"id", "login", "display_name", "password_hash", "capabilities", "disabled", "created_at"}))
	if _, err := dir.Authenticate(ctx, "nobody", "x"); err != directory.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for unknown login, got %v", err)
	}

	mock.ExpectQuery("select (.+) from principals where lower\\(login\\)").WithArgs("cashier1").
		WillReturnRows(principalRow(t, 7, "cashier1", "till-pass", nil, true))
	if _, err := dir.Authenticate(ctx, "cashier1", "till-pass"); err != directory.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for disabled principal, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDirectoryGetAndCapabilities(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	dir := NewDirectory(db)
	ctx := context.Background()

	mock.ExpectQuery("select (.+) from principals where id").WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "login", "display_name", "password_hash", "capabilities", "disabled", "created_at"}))
	if _, err := dir.Get(ctx, 9); err != directory.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mock.ExpectQuery("select (.+) from principals where id").WithArgs(int64(7)).
		WillReturnRows(principalRow(t, 7, "cashier1", "till-pass", []string{"manage_shop"}, false))
	ok, err := dir.HasCapability(ctx, 7, directory.CapabilityManageShop)
	if err != nil || !ok {
		t.Fatalf("HasCapability = %v, %v", ok, err)
	}

	mock.ExpectQuery("select (.+) from principals where id").WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "login", "display_name", "password_hash", "capabilities", "disabled", "created_at"}))
	ok, err = dir.HasCapability(ctx, 9, directory.CapabilityManageShop)
	if err != nil || ok {
		t.Fatalf("expected no capability for unknown principal, got %v, %v", ok, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
