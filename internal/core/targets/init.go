// Package targets registers the built-in import targets with the core registry.
// Import this package to ensure all targets are registered.
package targets

// Each target file uses init() to register its config.

// Keys of the built-in targets.
const (
	Contacts = "contacts"
	Items    = "items"
	Accounts = "accounts"
)
