// Package viewstate holds the client's screen state as immutable values.
// Every change goes through a pure reducer, so a screen can be replayed
// from its action log.
package viewstate

import (
	"context"
	"strings"

	"github.com/spec-kit/user-directory/internal/client"
	"github.com/spec-kit/user-directory/internal/domain"
)

// ListState is the state of the user listing screen.
type ListState struct {
	Users       []domain.User
	CurrentPage int
	TotalPages  int
	SearchTerm  string
	OpenMenuID  string
	Loading     bool
	Err         string
}

// NewListState returns the initial listing state.
func NewListState() ListState {
	return ListState{CurrentPage: 1}
}

// Action is an event applied to a ListState.
type Action interface {
	isListAction()
}

// PageRequested moves to another page and starts loading it.
type PageRequested struct{ Page int }

// LoadSucceeded carries a loaded page.
type LoadSucceeded struct {
	Users       []domain.User
	TotalPages  int
	CurrentPage int
}

// LoadFailed records a failed load.
type LoadFailed struct{ Err error }

// SearchChanged updates the filter term.
type SearchChanged struct{ Term string }

// SearchCleared resets the filter term.
type SearchCleared struct{}

// MenuToggled opens the row menu for ID, or closes it when already open.
type MenuToggled struct{ ID string }

// MenuClosed closes any open row menu.
type MenuClosed struct{}

// UserRemoved drops a deleted user from the loaded page.
type UserRemoved struct{ ID string }

func (PageRequested) isListAction() {}
func (LoadSucceeded) isListAction() {}
func (LoadFailed) isListAction()    {}
func (SearchChanged) isListAction() {}
func (SearchCleared) isListAction() {}
func (MenuToggled) isListAction()   {}
func (MenuClosed) isListAction()    {}
func (UserRemoved) isListAction()   {}

// Reduce returns the state that results from applying action to state.
// The input state is never modified.
func Reduce(state ListState, action Action) ListState {
	next := state
	next.Users = append([]domain.User(nil), state.Users...)

	switch a := action.(type) {
	case PageRequested:
		page := a.Page
		if page < 1 {
			page = 1
		}
		next.CurrentPage = page
		next.Loading = true
		next.Err = ""
		next.OpenMenuID = ""
	case LoadSucceeded:
		next.Users = append([]domain.User(nil), a.Users...)
		next.TotalPages = a.TotalPages
		if a.CurrentPage > 0 {
			next.CurrentPage = a.CurrentPage
		}
		next.Loading = false
		next.Err = ""
	case LoadFailed:
		next.Loading = false
		if a.Err != nil {
			next.Err = a.Err.Error()
		}
	case SearchChanged:
		next.SearchTerm = a.Term
	case SearchCleared:
		next.SearchTerm = ""
	case MenuToggled:
		if state.OpenMenuID == a.ID {
			next.OpenMenuID = ""
		} else {
			next.OpenMenuID = a.ID
		}
	case MenuClosed:
		next.OpenMenuID = ""
	case UserRemoved:
		kept := next.Users[:0]
		for _, u := range next.Users {
			if u.ID != a.ID {
				kept = append(kept, u)
			}
		}
		next.Users = kept
		if next.OpenMenuID == a.ID {
			next.OpenMenuID = ""
		}
	}
	return next
}

// Visible returns the loaded users matching the search term against
// first name, last name, email, mobile or location. The filter only sees
// the current page.
func Visible(state ListState) []domain.User {
	term := strings.ToLower(strings.TrimSpace(state.SearchTerm))
	if term == "" {
		return append([]domain.User(nil), state.Users...)
	}
	var out []domain.User
	for _, u := range state.Users {
		if matches(u, term) {
			out = append(out, u)
		}
	}
	return out
}

func matches(u domain.User, term string) bool {
	for _, field := range []string{u.FirstName, u.LastName, u.Email, u.Mobile, u.Location} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// PageLoader fetches a listing page.
type PageLoader interface {
	ListUsers(ctx context.Context, page int) (*client.Page, error)
}

// Load fetches page and returns the action describing the outcome.
func Load(ctx context.Context, api PageLoader, page int) Action {
	result, err := api.ListUsers(ctx, page)
	if err != nil {
		return LoadFailed{Err: err}
	}
	return LoadSucceeded{
		Users:       result.Users,
		TotalPages:  result.TotalPages,
		CurrentPage: result.CurrentPage,
	}
}
