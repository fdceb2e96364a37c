package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// table describes one table in a dialect-neutral way.  Column types use
// the placeholders below and are rewritten per driver by render.
type table struct {
	name    string
	columns []string
	unique  [][2]string // constraint name, column list
	indexes [][2]string // index name, column list
}

// Column type placeholders.
const (
	pk   = "%PK%"
	fkID = "%FKID%"
)

var schema = []table{
	{
		name: "users",
		columns: []string{
			"id " + pk,
			"name VARCHAR(120) NOT NULL DEFAULT ''",
			"email VARCHAR(255) NOT NULL",
			"password_hash VARCHAR(255) NULL",
			"role VARCHAR(16) NOT NULL DEFAULT 'user'",
			"email_verified BOOLEAN NOT NULL DEFAULT 0",
			"registered BOOLEAN NOT NULL DEFAULT 1",
			"verification_token VARCHAR(128) NULL",
			"verification_expires_at DATETIME NULL",
			"login_otp VARCHAR(6) NULL",
			"login_otp_expires_at DATETIME NULL",
			"phone VARCHAR(32) NOT NULL DEFAULT ''",
			"address VARCHAR(500) NOT NULL DEFAULT ''",
			"is_active BOOLEAN NOT NULL DEFAULT 1",
			"created_at DATETIME NOT NULL",
			"updated_at DATETIME NOT NULL",
		},
		unique:  [][2]string{{"uq_users_email", "email"}},
		indexes: [][2]string{{"idx_users_verification_token", "verification_token"}},
	},
	{
		name: "admins",
		columns: []string{
			"id " + pk,
			"name VARCHAR(120) NOT NULL DEFAULT ''",
			"email VARCHAR(255) NOT NULL",
			"password_hash VARCHAR(255) NOT NULL",
			"created_at DATETIME NOT NULL",
			"updated_at DATETIME NOT NULL",
		},
		unique: [][2]string{{"uq_admins_email", "email"}},
	},
	{
		name: "yoga_sessions",
		columns: []string{
			"id " + pk,
			"instructor VARCHAR(120) NOT NULL",
			"date VARCHAR(10) NOT NULL",
			"start_time VARCHAR(5) NOT NULL",
			"end_time VARCHAR(5) NOT NULL",
			"total_seats INT NOT NULL",
			"booked_seats INT NOT NULL DEFAULT 0",
			"price BIGINT NOT NULL",
			"session_type VARCHAR(16) NOT NULL DEFAULT 'regular'",
			"description TEXT NULL",
			"created_at DATETIME NOT NULL",
			"updated_at DATETIME NOT NULL",
			"CONSTRAINT chk_sessions_capacity CHECK (booked_seats >= 0 AND booked_seats <= total_seats)",
		},
		indexes: [][2]string{{"idx_sessions_date", "date"}},
	},
	{
		name: "bookings",
		columns: []string{
			"id " + pk,
			"user_id " + fkID + " NOT NULL",
			"session_id " + fkID + " NOT NULL",
			"seats INT NOT NULL",
			"amount BIGINT NOT NULL",
			"status VARCHAR(16) NOT NULL DEFAULT 'pending'",
			"phone VARCHAR(32) NOT NULL",
			"comment TEXT NULL",
			"created_at DATETIME NOT NULL",
			"updated_at DATETIME NOT NULL",
			"CONSTRAINT fk_bookings_user FOREIGN KEY (user_id) REFERENCES users(id)",
			"CONSTRAINT fk_bookings_session FOREIGN KEY (session_id) REFERENCES yoga_sessions(id)",
		},
		indexes: [][2]string{
			{"idx_bookings_user", "user_id"},
			{"idx_bookings_session", "session_id"},
		},
	},
	{
		name: "products",
		columns: []string{
			"id " + pk,
			"name VARCHAR(200) NOT NULL",
			"description TEXT NULL",
			"price BIGINT NOT NULL",
			"images TEXT NULL",
			"created_at DATETIME NOT NULL",
			"updated_at DATETIME NOT NULL",
		},
	},
	{
		name: "orders",
		columns: []string{
			"id " + pk,
			"user_id " + fkID + " NOT NULL",
			"amount BIGINT NOT NULL",
			"currency VARCHAR(8) NOT NULL",
			"status VARCHAR(16) NOT NULL DEFAULT 'pending'",
			"payment_provider VARCHAR(32) NULL",
			"payment_ref VARCHAR(128) NULL",
			"created_at DATETIME NOT NULL",
			"updated_at DATETIME NOT NULL",
			"CONSTRAINT fk_orders_user FOREIGN KEY (user_id) REFERENCES users(id)",
		},
		unique:  [][2]string{{"uq_orders_payment_ref", "payment_ref"}},
		indexes: [][2]string{{"idx_orders_user", "user_id"}},
	},
	{
		name: "order_items",
		columns: []string{
			"id " + pk,
			"order_id " + fkID + " NOT NULL",
			"product_id " + fkID + " NOT NULL",
			"name VARCHAR(200) NOT NULL",
			"price BIGINT NOT NULL",
			"quantity INT NOT NULL",
			"CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		},
		indexes: [][2]string{{"idx_order_items_order", "order_id"}},
	},
	{
		name: "available_slots",
		columns: []string{
			"id " + pk,
			"session_type VARCHAR(16) NOT NULL",
			"date VARCHAR(10) NOT NULL",
			"time VARCHAR(5) NOT NULL",
			"is_booked BOOLEAN NOT NULL DEFAULT 0",
			"created_at DATETIME NOT NULL",
			"updated_at DATETIME NOT NULL",
		},
		unique: [][2]string{{"uq_slots_type_date_time", "session_type, date, time"}},
	},
	{
		name: "session_enquiries",
		columns: []string{
			"id " + pk,
			"name VARCHAR(120) NOT NULL",
			"email VARCHAR(255) NOT NULL",
			"phone VARCHAR(32) NOT NULL DEFAULT ''",
			"session_type VARCHAR(16) NOT NULL",
			"message TEXT NULL",
			"status VARCHAR(16) NOT NULL DEFAULT 'pending'",
			"created_at DATETIME NOT NULL",
			"updated_at DATETIME NOT NULL",
		},
	},
	{
		name: "events",
		columns: []string{
			"id " + pk,
			"title VARCHAR(200) NOT NULL",
			"description TEXT NULL",
			"location VARCHAR(255) NOT NULL DEFAULT ''",
			"date VARCHAR(10) NOT NULL",
			"image VARCHAR(500) NOT NULL DEFAULT ''",
			"created_at DATETIME NOT NULL",
			"updated_at DATETIME NOT NULL",
		},
	},
	{
		name: "blogs",
		columns: []string{
			"id " + pk,
			"title VARCHAR(200) NOT NULL",
			"slug VARCHAR(200) NOT NULL",
			"content TEXT NULL",
			"author VARCHAR(120) NOT NULL DEFAULT ''",
			"image VARCHAR(500) NOT NULL DEFAULT ''",
			"published BOOLEAN NOT NULL DEFAULT 0",
			"created_at DATETIME NOT NULL",
			"updated_at DATETIME NOT NULL",
		},
		unique: [][2]string{{"uq_blogs_slug", "slug"}},
	},
}

// render turns a table into the statements for one driver.  MySQL keeps
// secondary indexes inline because it has no CREATE INDEX IF NOT EXISTS;
// SQLite gets them as separate statements.
func (t table) render(driver string) []string {
	var types *strings.Replacer
	if driver == DriverSQLite {
		types = strings.NewReplacer(pk, "INTEGER PRIMARY KEY AUTOINCREMENT", fkID, "INTEGER")
	} else {
		types = strings.NewReplacer(pk, "BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY", fkID, "BIGINT UNSIGNED")
	}

	defs := make([]string, 0, len(t.columns)+len(t.unique)+len(t.indexes))
	for _, col := range t.columns {
		defs = append(defs, types.Replace(col))
	}
	for _, u := range t.unique {
		defs = append(defs, fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", u[0], u[1]))
	}
	var extra []string
	for _, idx := range t.indexes {
		if driver == DriverSQLite {
			extra = append(extra, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", idx[0], t.name, idx[1]))
		} else {
			defs = append(defs, fmt.Sprintf("INDEX %s (%s)", idx[0], idx[1]))
		}
	}

	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", t.name, strings.Join(defs, ",\n\t"))
	if driver != DriverSQLite {
		create += " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
	}
	return append([]string{create}, extra...)
}

// Migrate creates every table the service needs.  It is idempotent and
// safe to run at every start-up.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	if driver != DriverMySQL && driver != DriverSQLite {
		return fmt.Errorf("migrate: unsupported driver %q", driver)
	}
	for _, t := range schema {
		for _, stmt := range t.render(driver) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrate %s: %w", t.name, err)
			}
		}
	}
	return nil
}
