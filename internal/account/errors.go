// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeChain Contributors

package account

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when a live account with the same email
// already exists. Repositories surface this from the storage-level unique
// constraint so that concurrent registrations are serialized by the database
// rather than by an application-level check.
var ErrDuplicateEmail = errors.New("duplicate email")
