package identity

import "time"

// User represents a registered portal operator.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	Phone        string
	OperatorCode string
	OperatorType string
	Role         string
	CreatedAt    time.Time
}
