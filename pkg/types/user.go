package types

// User is the identity returned by the identity contract.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// UserFromRecord reads a User out of a users-table record.
func UserFromRecord(rec Record) User {
	u := User{ID: rec.ID()}
	u.Email, _ = rec["email"].(string)
	u.DisplayName, _ = rec["display_name"].(string)
	return u
}
