package viewstate

import (
	"context"
	"path"

	"github.com/spec-kit/user-directory/internal/client"
	"github.com/spec-kit/user-directory/internal/domain"
)

// FormState is the state of the add/edit screen.
type FormState struct {
	EditingID       string
	Values          client.UserForm
	Image           *client.Image
	Preview         string
	FileName        string
	ExistingProfile string
	Submitting      bool
	Err             string
	Saved           *domain.User
}

// NewFormState returns an empty form for creating a user.
func NewFormState() FormState {
	return FormState{}
}

// FormAction is an event applied to a FormState.
type FormAction interface {
	isFormAction()
}

// UserLoaded fills the form from an existing user.
type UserLoaded struct{ User domain.User }

// FieldChanged sets one named field.
type FieldChanged struct{ Field, Value string }

// ImageSelected attaches a new profile image. Preview is a local reference to it.
type ImageSelected struct {
	Image   client.Image
	Preview string
}

// ImageRemoved drops the selected image, restoring the stored one when editing.
type ImageRemoved struct{}

// SubmitStarted marks the form as submitting.
type SubmitStarted struct{}

// SubmitSucceeded records the saved user.
type SubmitSucceeded struct{ User domain.User }

// SubmitFailed records a failed submit. Entered values are kept.
type SubmitFailed struct{ Err error }

func (UserLoaded) isFormAction()      {}
func (FieldChanged) isFormAction()    {}
func (ImageSelected) isFormAction()   {}
func (ImageRemoved) isFormAction()    {}
func (SubmitStarted) isFormAction()   {}
func (SubmitSucceeded) isFormAction() {}
func (SubmitFailed) isFormAction()    {}

// ReduceForm returns the state that results from applying action to state.
func ReduceForm(state FormState, action FormAction) FormState {
	next := state
	if state.Image != nil {
		img := *state.Image
		next.Image = &img
	}

	switch a := action.(type) {
	case UserLoaded:
		u := a.User
		next.EditingID = u.ID
		next.Values = client.UserForm{
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
			Mobile:    u.Mobile,
			Gender:    string(u.Gender),
			Status:    string(u.Status),
			Location:  u.Location,
		}
		next.ExistingProfile = u.Profile
		next.Preview = u.Profile
		next.FileName = baseName(u.Profile)
		next.Image = nil
	case FieldChanged:
		setField(&next.Values, a.Field, a.Value)
	case ImageSelected:
		img := a.Image
		next.Image = &img
		next.Preview = a.Preview
		next.FileName = a.Image.FileName
	case ImageRemoved:
		next.Image = nil
		next.Preview = state.ExistingProfile
		next.FileName = baseName(state.ExistingProfile)
	case SubmitStarted:
		next.Submitting = true
		next.Err = ""
	case SubmitSucceeded:
		u := a.User
		next.Submitting = false
		next.Err = ""
		next.Saved = &u
	case SubmitFailed:
		next.Submitting = false
		if a.Err != nil {
			next.Err = a.Err.Error()
		}
	}
	return next
}

// UserSaver creates and updates users.
type UserSaver interface {
	CreateUser(ctx context.Context, form client.UserForm, image *client.Image) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, form client.UserForm, image *client.Image) (*domain.User, error)
}

// Submit saves the form and returns the action describing the outcome.
// Only a newly selected image is sent, so an edit keeps the stored profile.
func Submit(ctx context.Context, api UserSaver, state FormState) FormAction {
	var (
		user *domain.User
		err  error
	)
	if state.EditingID != "" {
		user, err = api.UpdateUser(ctx, state.EditingID, state.Values, state.Image)
	} else {
		user, err = api.CreateUser(ctx, state.Values, state.Image)
	}
	if err != nil {
		return SubmitFailed{Err: err}
	}
	return SubmitSucceeded{User: *user}
}

func setField(values *client.UserForm, field, value string) {
	switch field {
	case "firstName":
		values.FirstName = value
	case "lastName":
		values.LastName = value
	case "email":
		values.Email = value
	case "mobile":
		values.Mobile = value
	case "gender":
		values.Gender = value
	case "status":
		values.Status = value
	case "location":
		values.Location = value
	}
}

func baseName(ref string) string {
	if ref == "" {
		return ""
	}
	return path.Base(ref)
}
