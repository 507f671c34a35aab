package service

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"github.com/spec-kit/user-directory/internal/domain"
	apperrors "github.com/spec-kit/user-directory/pkg/util/errorutil"
)

// CSVHeader is the column order of exported users.
var CSVHeader = []string{
	"id", "firstName", "lastName", "email", "mobile", "gender",
	"status", "profile", "location", "createdAt", "updatedAt",
}

// ExportAllUsersCSV writes every user as CSV to w and returns the number of data rows.
// Nothing is written when the record store fails.
func (s *UserService) ExportAllUsersCSV(ctx context.Context, w io.Writer) (rows int, err error) {
	defer s.observe("export", &err)

	users, err := s.users.ListAll(ctx)
	if err != nil {
		return 0, apperrors.NewStorageError(err)
	}
	if err := WriteUsersCSV(w, users); err != nil {
		return 0, apperrors.NewInternalError(err)
	}
	return len(users), nil
}

// WriteUsersCSV encodes users with a header row using RFC 4180 quoting.
func WriteUsersCSV(w io.Writer, users []domain.User) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return err
	}
	for i := range users {
		if err := writer.Write(csvRecord(&users[i])); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func csvRecord(u *domain.User) []string {
	return []string{
		u.ID,
		u.FirstName,
		u.LastName,
		u.Email,
		u.Mobile,
		string(u.Gender),
		string(u.Status),
		u.Profile,
		u.Location,
		u.CreatedAt.UTC().Format(time.RFC3339),
		u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
