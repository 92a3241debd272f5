package models

type UserInfo struct {
	ID          string `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	DateOfBirth string `json:"dateOfBirth"` // YYYY-MM-DD
	ChatToken   string `json:"streamChatToken"`
}
