// Package repository implements the credential store contract on MySQL.
// Driver-level failures are translated here into the sentinel errors the
// auth package understands, so handlers and the session manager never
// inspect raw database errors.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/FelipeMiiller/userhub-back/internal/auth"
)

// mysqlDuplicateEntry is the server error number for a unique-key
// violation (ER_DUP_ENTRY).
const mysqlDuplicateEntry = 1062

// mapError converts driver errors into the store contract's sentinels:
// sql.ErrNoRows becomes auth.ErrNotFound and a duplicate-key violation
// becomes auth.ErrDuplicateIdentity.  Anything else passes through.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return auth.ErrNotFound
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return auth.ErrDuplicateIdentity
	}
	return err
}
