package models

// Member is the display record of a user in API responses.
type Member struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
