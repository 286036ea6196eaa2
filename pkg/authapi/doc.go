// Package authapi exposes the account flows over HTTP: registration,
// login, email verification, and password recovery. Handlers validate
// the request shape, delegate to the services, and map error codes to
// HTTP statuses.
package authapi
