// Package db provides the embedded database schema and the sample catalog.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedCatalog is the sample coupon catalog in YAML form.
//
//go:embed seed/coupons.yaml
var SeedCatalog []byte
