// Package tokengenerator signs and parses the JWT session tokens handed
// out after login. Tokens are HS256-signed with a shared secret; the
// subject is the account id and email, name, and role travel as claims.
package tokengenerator
