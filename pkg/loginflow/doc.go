// Package loginflow authenticates storefront accounts: password check,
// confirmed-email gate, role resolution, and session token issuance.
package loginflow
