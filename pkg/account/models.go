package account

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultRole is the role assigned to every newly registered account.
const DefaultRole = "Customer"

// Account represents a storefront customer account
type Account struct {
	ID           uuid.UUID
	Email        string
	NationalID   string
	FirstName    string
	LastName     string
	Gender       string
	BirthDate    time.Time
	PhoneNumber  string
	Confirmed    bool
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

// DisplayName returns the name used in session claims and email greetings
func (a Account) DisplayName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Role represents a named role an account can hold
type Role struct {
	ID   uuid.UUID
	Name string
}

// CreateAccountParams holds the fields for creating a new account
type CreateAccountParams struct {
	Email       string
	NationalID  string
	FirstName   string
	LastName    string
	Gender      string
	BirthDate   time.Time
	PhoneNumber string
	Confirmed   bool
}
