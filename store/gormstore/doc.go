// Package gormstore implements authcore.UserStore on top of gorm.
//
// Postgres is the production backend; SQLite (pure Go, via glebarez/sqlite)
// serves local development and tests. Updates are optimistic: every row
// carries a version that must still match when the new values are written.
package gormstore
