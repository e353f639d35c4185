// Package repository implements MySQL persistence for the marketplace
// tables. Sentinel errors let handlers map repository failures onto HTTP
// statuses without string matching; plain not-found is reported as
// sql.ErrNoRows throughout.
package repository

import "errors"

// ErrEmailExists is returned when an insert or update would violate the
// unique email constraint on users. Handlers translate it into HTTP 409.
var ErrEmailExists = errors.New("email already exists")
