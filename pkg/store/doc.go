// Package store keeps persisted n-gram models under names. Two backends are
// provided: a directory holding one "<name>.json" file per model, and a SQLite
// catalog holding every model in a single database file.
package store
