package domain

import (
	"errors"
	"time"
)

const (
	RoleHR       = "hr"
	RoleEmployee = "employee"
)

var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")
var ErrInvalidCredentials = errors.New("invalid credentials")

// Affiliation is the durable employee→company link written by an approved
// request or a direct assignment. All four fields are set together and
// cleared together; a nil Affiliation means the employee is unaffiliated.
type Affiliation struct {
	HREmail     string    `json:"hr_email" bson:"hr_email"`
	CompanyName string    `json:"company_name" bson:"company_name"`
	CompanyLogo string    `json:"company_logo" bson:"company_logo"`
	JoinedDate  time.Time `json:"joined_date" bson:"joined_date"`
}

// User models an account keyed by its unique email. HR accounts carry the
// company profile and seat limit; employee accounts carry an optional
// affiliation block.
type User struct {
	ID           string       `json:"id" bson:"_id,omitempty"`
	Name         string       `json:"name" bson:"name"`
	Email        string       `json:"email" bson:"email"`
	PasswordHash string       `json:"-" bson:"password_hash"`
	Role         string       `json:"role" bson:"role"`
	CompanyName  string       `json:"company_name,omitempty" bson:"company_name,omitempty"`
	CompanyLogo  string       `json:"company_logo,omitempty" bson:"company_logo,omitempty"`
	PackageLimit int          `json:"package_limit,omitempty" bson:"package_limit,omitempty"`
	Affiliation  *Affiliation `json:"affiliation,omitempty" bson:"affiliation,omitempty"`
	CreatedAt    time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" bson:"updated_at"`
}

// Affiliated reports whether the employee is currently linked to a company.
func (u *User) Affiliated() bool {
	return u.Affiliation != nil
}
