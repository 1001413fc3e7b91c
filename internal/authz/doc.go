// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

// Package authz decides what an authenticated caller may do, using Casbin
// RBAC over request paths.
//
// The model and policy are embedded; SecurityConfig.CasbinModelPath and
// CasbinPolicyPath override them from disk. Subjects without a role are
// evaluated as DefaultRole ("member"). Decisions are cached per
// (subject, object, action) for CacheTTL.
package authz
