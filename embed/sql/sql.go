package sql

import _ "embed"

// Schema is the full jobsite schema. Every statement is idempotent.
//
//go:embed schema.sql
var Schema string
