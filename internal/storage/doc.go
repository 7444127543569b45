// Package storage provides the SQLite-backed dashboard and layout repositories
// together with the embedded schema migrations they depend on.
package storage
