package domain

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	UserID         string     `json:"id" dynamodbav:"user_id"`
	Email          string     `json:"email" dynamodbav:"email"`
	PasswordHash   string     `json:"-" dynamodbav:"password_hash"`
	FirstName      string     `json:"first_name" dynamodbav:"first_name"`
	LastName       string     `json:"last_name" dynamodbav:"last_name"`
	Phone          *string    `json:"phone_number" dynamodbav:"phone_number"`
	Role           string     `json:"role" dynamodbav:"role"`
	EmailConfirmed bool       `json:"email_confirmed" dynamodbav:"email_confirmed"`
	PhoneConfirmed bool       `json:"phone_number_confirmed" dynamodbav:"phone_number_confirmed"`
	TokenBalance   int64      `json:"token_balance" dynamodbav:"token_balance"`
	Active         bool       `json:"active" dynamodbav:"active"`
	LastLogin      *time.Time `json:"last_login,omitempty" dynamodbav:"last_login"`
	CreatedAt      time.Time  `json:"date_joined" dynamodbav:"created_at"`
	UpdatedAt      time.Time  `json:"updated" dynamodbav:"updated_at"`
}

type CreateUserRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8,max=72"`
	FirstName string  `json:"first_name" validate:"required,max=32"`
	LastName  string  `json:"last_name" validate:"required,max=32"`
	Phone     *string `json:"phone_number"`
}

// UpdateUserRequest carries the only account fields a user may edit directly.
// Avatar and Biography live on the profile record but are accepted here so one
// call can touch both, matching the account-update endpoint contract.
type UpdateUserRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=32"`
	LastName  *string `json:"last_name" validate:"omitempty,max=32"`
	Avatar    *string `json:"avatar"`
	Biography *string `json:"biography"`
}

type LoginRequest struct {
	Email    *string `json:"email"`
	Phone    *string `json:"phone_number"`
	Password string  `json:"password" validate:"required,max=128"`
}
