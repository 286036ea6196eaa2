// Package signup handles account registration: uniqueness checks on
// email and national id, credential creation under the password policy,
// default role assignment, and issuing the email verification code for
// accounts that start unconfirmed.
package signup
