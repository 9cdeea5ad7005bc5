// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeChain Contributors

// Package account implements the resident credential lifecycle for SafeChain.
//
// # Domain Types
//
// Domain types (Account, PasswordReset) should be created using their
// respective constructors:
//   - NewAccount - creates an Account with validated fields and a fresh ID
//   - NewPasswordReset - creates a PasswordReset with validated email and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - registration, login, change-password
//   - PasswordResetService - forgot-password / reset-password flow
//
// Services are created with New*Service constructors that validate dependencies.
package account
