// Package reaper deletes unconfirmed accounts after a grace window,
// freeing their emails for re-registration. A cron scheduler runs it
// periodically and retries failed runs with bounded backoff.
package reaper
