package models

import "strings"

type UserRole string

const (
	RoleDeveloper UserRole = "developer"
	RoleManager   UserRole = "manager"
	RoleTester    UserRole = "tester"
	RoleDesigner  UserRole = "designer"
	RoleAnalyst   UserRole = "analyst"
)

var UserRoleChoices = []Choice{
	{string(RoleDeveloper), "Developer"},
	{string(RoleManager), "Project Manager"},
	{string(RoleTester), "Tester"},
	{string(RoleDesigner), "Designer"},
	{string(RoleAnalyst), "Business Analyst"},
}

func (r UserRole) Valid() bool { return validChoice(UserRoleChoices, string(r)) }

type User struct {
	Model
	Username     string   `gorm:"uniqueIndex;size:150;not null"`
	Email        string   `gorm:"uniqueIndex;size:254;not null"`
	FirstName    string   `gorm:"size:150"`
	LastName     string   `gorm:"size:150"`
	PasswordHash string   `gorm:"not null"`
	Role         UserRole `gorm:"type:varchar(50);not null;default:developer"`
	GithubUser   string   `gorm:"size:100"`
	Bio          string   `gorm:"type:text"`
}

func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
