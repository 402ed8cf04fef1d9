// Package repository holds the durable identity store. Sentinel errors
// let handlers map storage outcomes onto HTTP statuses without
// inspecting driver details.
package repository

import "errors"

// ErrEmailExists is returned when an insert would violate the unique
// email constraint. Handlers translate it into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a lookup matches no user. Handlers
// decide between 400, 401 and 404 depending on the flow.
var ErrNotFound = errors.New("user not found")
