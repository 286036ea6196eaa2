// Package passwordreset rotates credentials for accounts that lost
// theirs. RecoverPassword mails a 6-digit code; ResetPassword consumes
// it and stores the new password. The recovery endpoint answers with the
// same generic message for every email.
package passwordreset
