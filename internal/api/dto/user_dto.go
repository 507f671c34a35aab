package dto

import (
	"time"

	"github.com/spec-kit/user-directory/internal/domain"
)

// UserRequest carries the writable user fields from a form, JSON or urlencoded body.
type UserRequest struct {
	FirstName string `json:"firstName" form:"firstName"`
	LastName  string `json:"lastName" form:"lastName"`
	Email     string `json:"email" form:"email"`
	Mobile    string `json:"mobile" form:"mobile"`
	Gender    string `json:"gender" form:"gender"`
	Status    string `json:"status" form:"status"`
	Location  string `json:"location" form:"location"`
	Profile   string `json:"profile" form:"profile"`
}

// UserResponse is the wire form of a user.
type UserResponse struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Mobile    string    `json:"mobile"`
	Gender    string    `json:"gender"`
	Status    string    `json:"status"`
	Profile   string    `json:"profile"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserListResponse is one page of the listing.
type UserListResponse struct {
	Users       []UserResponse `json:"users"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
}

// UserEnvelope wraps a single user under "users".
type UserEnvelope struct {
	Users UserResponse `json:"users"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// NewUserResponse maps a domain user to its wire form.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Mobile:    u.Mobile,
		Gender:    string(u.Gender),
		Status:    string(u.Status),
		Profile:   u.Profile,
		Location:  u.Location,
		CreatedAt: u.CreatedAt.UTC(),
		UpdatedAt: u.UpdatedAt.UTC(),
	}
}

// NewUserResponses maps users, never returning nil.
func NewUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}

// ToDomain converts the response back into a domain user.
func (r UserResponse) ToDomain() domain.User {
	return domain.User{
		ID:        r.ID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Mobile:    r.Mobile,
		Gender:    domain.Gender(r.Gender),
		Status:    domain.UserStatus(r.Status),
		Profile:   r.Profile,
		Location:  r.Location,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
