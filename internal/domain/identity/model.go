package identity

// User is the public view of a usuarios row.
type User struct {
	ID       int64  `json:"id"`
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	UserType *int64 `json:"fk_tipo_usuario"`
}

// Credentials pairs a user with the stored password hash. It is never
// serialized.
type Credentials struct {
	User
	PasswordHash string `json:"-"`
}
