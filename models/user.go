package models

// User is an entry of the credentials file. Password holds a bcrypt hash.
type User struct {
	Username string `yaml:"-" json:"username"`
	Email    string `yaml:"email" json:"email"`
	Name     string `yaml:"name" json:"name"`
	Password string `yaml:"password" json:"-"`
}
