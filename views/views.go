// Package views holds the default presentation for a pressroom site.
package views

import "github.com/eringen/pressroom"

// Default returns the built-in templates.
func Default() pressroom.ViewFuncs {
	return pressroom.ViewFuncs{
		Home:           Home,
		Archive:        Archive,
		Article:        Article,
		AdminLogin:     AdminLogin,
		AdminDashboard: AdminDashboard,
		AdminEditor:    AdminEditor,
		NotFound:       NotFound,
		ServerError:    ServerError,
	}
}
