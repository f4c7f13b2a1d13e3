package models

// Role is a closed enumeration; anything outside RoleAdmin/RoleUser is
// rejected at the edge.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	}
	return false
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string `gorm:"size:50;not null"         json:"name"`
	Email        string `gorm:"size:100;unique;not null" json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         Role   `gorm:"size:16;not null"         json:"role"`
}

type Item struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"size:150;not null"        json:"name"`
	Description string  `gorm:"size:300"                 json:"description"`
	Price       float64 `json:"price"`
}
