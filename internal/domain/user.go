// Package domain defines the persistence model for users. The type is mapped
// with GORM and forms the core data layer of the application.
package domain

import "time"

// User represents a single account record.
//
// Fields:
//   - ID: auto-increment primary key, generated by the store, immutable.
//   - FirstName / LastName: non-empty text, minimum length 2 (enforced at the
//     schema layer).
//   - Email: lowercase-normalized address, unique across all users. The
//     service layer checks uniqueness before insert; the unique index is the
//     last line of defense.
//   - IsActive: plain data flag, defaulted to true by the service when a
//     create request omits it. Not a deletion marker.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM. UpdatedAt is
//     refreshed on every mutation, so UpdatedAt >= CreatedAt always holds.
type User struct {
	ID        int64     `json:"id"        gorm:"primaryKey;autoIncrement"`
	FirstName string    `json:"firstName" gorm:"column:first_name;type:varchar(255);not null"`
	LastName  string    `json:"lastName"  gorm:"column:last_name;type:varchar(255);not null"`
	Email     string    `json:"email"     gorm:"type:varchar(320);not null;uniqueIndex:ux_users_email"`
	IsActive  bool      `json:"isActive"  gorm:"column:is_active;not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// userColumns is the whitelist of sortable column names, in table order.
// The list layer rejects any order_by value outside this set.
var userColumns = []string{
	"id",
	"first_name",
	"last_name",
	"email",
	"is_active",
	"created_at",
	"updated_at",
}

// UserColumns returns the sortable column names of the users table.
// The returned slice is a copy; callers may not mutate the whitelist.
func UserColumns() []string {
	out := make([]string, len(userColumns))
	copy(out, userColumns)
	return out
}

// IsUserColumn reports whether name is a column of the users table.
func IsUserColumn(name string) bool {
	for _, c := range userColumns {
		if c == name {
			return true
		}
	}
	return false
}
