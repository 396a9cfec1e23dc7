package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mkarlis/go-users-backend/internal/apperr"
	"github.com/mkarlis/go-users-backend/internal/domain"
)

func newUserRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("user_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, first, last, email string, active bool) *domain.User {
	t.Helper()
	u := &domain.User{FirstName: first, LastName: last, Email: email, IsActive: active}
	if err := CreateUser(context.Background(), db, u); err != nil {
		t.Fatalf("seed %s: %v", email, err)
	}
	return u
}

// --- CreateUser ---

func TestCreateUser_Error_NoTable_MapsToInternal(t *testing.T) {
	db := newUserRepoDB(t /* no migrations */)
	u := &domain.User{FirstName: "Jane", LastName: "Doe", Email: "jane@ex.com", IsActive: true}
	err := CreateUser(context.Background(), db, u)
	if err == nil {
		t.Fatalf("expected error creating without table")
	}
	if !apperr.IsKind(err, apperr.KindInternal) {
		t.Fatalf("storage failure must surface as Internal, got %v", err)
	}
}

func TestCreateUser_Success_SetsGeneratedFields(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})

	start := time.Now().Add(-time.Minute)
	u := seedUser(t, db, "Jane", "Doe", "jane@ex.com", true)
	if u.ID < 1 {
		t.Fatalf("ID not generated: %+v", u)
	}
	if u.CreatedAt.Before(start) || u.UpdatedAt.Before(u.CreatedAt) {
		t.Fatalf("timestamps unexpected: created=%v updated=%v", u.CreatedAt, u.UpdatedAt)
	}

	// round-trip
	got, err := GetUser(context.Background(), db, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.FirstName != "Jane" || got.LastName != "Doe" || got.Email != "jane@ex.com" || !got.IsActive {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestCreateUser_InactiveIsPersisted(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})
	u := seedUser(t, db, "Inge", "Idle", "inge@ex.com", false)

	got, err := GetUser(context.Background(), db, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.IsActive {
		t.Fatalf("explicit is_active=false was not stored")
	}
}

// --- GetUser / GetUserByEmail ---

func TestGetUser_NotFound(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})
	if _, err := GetUser(context.Background(), db, 999); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})
	seedUser(t, db, "Jane", "Doe", "jane@ex.com", true)

	got, err := GetUserByEmail(context.Background(), db, "jane@ex.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.FirstName != "Jane" {
		t.Fatalf("wrong record: %+v", got)
	}

	if _, err := GetUserByEmail(context.Background(), db, "nobody@ex.com"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// --- UpdateUser ---

func TestUpdateUser_PartialLeavesOtherFields_AdvancesUpdatedAt(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})
	u := seedUser(t, db, "Jane", "Doe", "jane@ex.com", true)
	before := u.UpdatedAt

	time.Sleep(10 * time.Millisecond) // ensure a visibly later updated_at

	got, err := UpdateUser(context.Background(), db, u.ID, map[string]any{"first_name": "Janet"})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if got.FirstName != "Janet" {
		t.Fatalf("first_name not updated: %+v", got)
	}
	if got.LastName != "Doe" || got.Email != "jane@ex.com" || !got.IsActive {
		t.Fatalf("untouched fields changed: %+v", got)
	}
	if !got.UpdatedAt.After(before) {
		t.Fatalf("updated_at did not advance: before=%v after=%v", before, got.UpdatedAt)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Fatalf("updated_at < created_at")
	}
}

func TestUpdateUser_EmptyFieldsIsReadOnly(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})
	u := seedUser(t, db, "Jane", "Doe", "jane@ex.com", true)

	got, err := UpdateUser(context.Background(), db, u.ID, nil)
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if got.FirstName != "Jane" || !got.UpdatedAt.Equal(u.UpdatedAt) {
		t.Fatalf("no-op update mutated the row: %+v", got)
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})
	if _, err := UpdateUser(context.Background(), db, 42, map[string]any{"first_name": "X"}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// --- DeleteUser ---

func TestDeleteUser(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})
	u := seedUser(t, db, "Jane", "Doe", "jane@ex.com", true)

	if err := DeleteUser(context.Background(), db, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := GetUser(context.Background(), db, u.ID); err != ErrNotFound {
		t.Fatalf("record still present after delete: %v", err)
	}
	if err := DeleteUser(context.Background(), db, u.ID); err != ErrNotFound {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
}

// --- ListUsers / CountUsers ---

func seedListFixture(t *testing.T, db *gorm.DB) {
	t.Helper()
	seedUser(t, db, "Alice", "Able", "alice@ex.com", true)
	seedUser(t, db, "Bob", "Baker", "bob@ex.com", false)
	seedUser(t, db, "Carol", "Cole", "carol@ex.com", true)
	seedUser(t, db, "Dave", "Dunn", "dave@ex.com", false)
}

func TestListUsers_DefaultOrderIsIDAscending(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})
	seedListFixture(t, db)

	out, err := ListUsers(context.Background(), db, ListFilter{Limit: 10})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 users, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].ID < out[i-1].ID {
			t.Fatalf("not ascending by id: %v then %v", out[i-1].ID, out[i].ID)
		}
	}
}

func TestListUsers_PaginationWindow(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})
	seedListFixture(t, db)

	out, err := ListUsers(context.Background(), db, ListFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected window of 2, got %d", len(out))
	}
	if out[0].Email != "bob@ex.com" || out[1].Email != "carol@ex.com" {
		t.Fatalf("unexpected window: %+v", out)
	}
}

func TestListUsers_IsActiveFilter(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})
	seedListFixture(t, db)

	active := true
	out, err := ListUsers(context.Background(), db, ListFilter{Limit: 10, IsActive: &active})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 active users, got %d", len(out))
	}
	for _, u := range out {
		if !u.IsActive {
			t.Fatalf("inactive user in filtered result: %+v", u)
		}
	}
}

func TestListUsers_OrderByEmailDescending(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})
	seedListFixture(t, db)

	out, err := ListUsers(context.Background(), db, ListFilter{Limit: 10, OrderBy: "email", Sort: "desc"})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	for i := 1; i < len(out); i++ {
		if out[i].Email > out[i-1].Email {
			t.Fatalf("not non-increasing by email: %q then %q", out[i-1].Email, out[i].Email)
		}
	}
}

func TestCountUsers(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})
	seedListFixture(t, db)

	total, err := CountUsers(context.Background(), db, nil)
	if err != nil || total != 4 {
		t.Fatalf("CountUsers = %d, %v", total, err)
	}
	inactive := false
	total, err = CountUsers(context.Background(), db, &inactive)
	if err != nil || total != 2 {
		t.Fatalf("CountUsers(inactive) = %d, %v", total, err)
	}
}

// --- orderClause ---

func TestOrderClause_DefensiveDefaults(t *testing.T) {
	cases := []struct {
		orderBy, sort, want string
	}{
		{"", "", "id asc"},
		{"email", "desc", "email desc"},
		{"email", "sideways", "email asc"},
		{"drop table users;--", "asc", "id asc"},
	}
	for _, tc := range cases {
		if got := orderClause(tc.orderBy, tc.sort); got != tc.want {
			t.Fatalf("orderClause(%q,%q) = %q, want %q", tc.orderBy, tc.sort, got, tc.want)
		}
	}
}

// --- UsersStats ---

func TestUsersStats(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})

	count, maxTS, err := UsersStats(context.Background(), db)
	if err != nil || count != 0 || maxTS != nil {
		t.Fatalf("empty stats = (%d, %v, %v)", count, maxTS, err)
	}

	seedListFixture(t, db)
	count, maxTS, err = UsersStats(context.Background(), db)
	if err != nil {
		t.Fatalf("UsersStats: %v", err)
	}
	if count != 4 || maxTS == nil || maxTS.IsZero() {
		t.Fatalf("stats unexpected: (%d, %v)", count, maxTS)
	}
}
