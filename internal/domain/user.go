package domain

// UserID identifies a user.
type UserID int64

// User is a person taking part in a tab.
type User struct {
	ID    UserID `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// NewUser creates a user. Email is optional.
func NewUser(id UserID, name, email string) User {
	return User{ID: id, Name: name, Email: email}
}

// Validate checks the user's name and, when present, email.
func (u User) Validate() error {
	if err := ValidateName(u.Name); err != nil {
		return err
	}
	if u.Email != "" {
		return ValidateEmail(u.Email)
	}
	return nil
}
