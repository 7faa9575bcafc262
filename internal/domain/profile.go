package domain

import "time"

// Defaults applied when a profile is provisioned for a new user.
const (
	DefaultAvatar    = "default_profile_image.png"
	DefaultBiography = "I am cool person!"
)

type Profile struct {
	UserID          string    `json:"user_id" dynamodbav:"user_id"`
	Avatar          string    `json:"avatar" dynamodbav:"avatar"`
	Biography       string    `json:"biography" dynamodbav:"biography"`
	BusinessAccount bool      `json:"business_account" dynamodbav:"business_account"`
	Followers       []string  `json:"followers" dynamodbav:"followers"`
	CreatedAt       time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt       time.Time `json:"updated" dynamodbav:"updated_at"`
}
