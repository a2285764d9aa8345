// Package db provides embedded database migrations and seed data.
package db

import "embed"

// Migrations holds the golang-migrate files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// Seed holds the sample catalog loaded by storectl seed.
//
//go:embed seed/products.json
var Seed []byte
