package domain

import "time"

// Gender enumerates accepted gender values.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Valid reports whether g is one of the enumerated values.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// UserStatus represents lifecycle states for a directory entry.
type UserStatus string

const (
	UserStatusActive   UserStatus = "Active"
	UserStatusInactive UserStatus = "Inactive"
)

// Valid reports whether s is one of the enumerated values.
func (s UserStatus) Valid() bool {
	return s == UserStatusActive || s == UserStatusInactive
}

// User is the single directory record.
type User struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Mobile    string
	Gender    Gender
	Status    UserStatus
	Profile   string
	Location  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Attachment is an uploaded profile image awaiting storage.
type Attachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Size returns the attachment payload size in bytes.
func (a *Attachment) Size() int64 {
	if a == nil {
		return 0
	}
	return int64(len(a.Data))
}
