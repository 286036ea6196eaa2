// Package emailverification confirms account email addresses. A 6-digit
// code is mailed at registration; VerifyEmail consumes it and flips the
// account to confirmed. Too many wrong attempts delete the unconfirmed
// account, freeing the email for a fresh registration.
package emailverification
