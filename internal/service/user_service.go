package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/user-directory/internal/domain"
	"github.com/spec-kit/user-directory/internal/events"
	"github.com/spec-kit/user-directory/internal/observability"
	"github.com/spec-kit/user-directory/internal/repository"
	"github.com/spec-kit/user-directory/internal/storage"
	apperrors "github.com/spec-kit/user-directory/pkg/util/errorutil"
)

// PageSize is the fixed number of users per listing page.
const PageSize = 5

// DefaultMaxUploadBytes caps profile images when no limit is configured.
const DefaultMaxUploadBytes = 5 << 20

// AttachmentStore uploads and removes profile images.
type AttachmentStore interface {
	Upload(ctx context.Context, att *domain.Attachment) (storage.StoredObject, error)
	Delete(ctx context.Context, key string) error
}

// UserService coordinates the user record lifecycle.
type UserService struct {
	users          repository.UserRepository
	attachments    AttachmentStore
	dispatcher     events.Dispatcher
	logger         *zap.Logger
	metrics        *observability.Metrics
	maxUploadBytes int64
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo       repository.UserRepository
	Attachments    AttachmentStore
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	MaxUploadBytes int64
}

// UserInput carries the writable user fields. Profile is accepted for
// payload compatibility but never written; only attachments change it.
type UserInput struct {
	FirstName string
	LastName  string
	Email     string
	Mobile    string
	Gender    string
	Status    string
	Location  string
	Profile   string
}

// UserPage is one page of the user listing.
type UserPage struct {
	Users       []domain.User
	TotalPages  int
	CurrentPage int
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &UserService{
		users:          deps.UserRepo,
		attachments:    deps.Attachments,
		dispatcher:     deps.Dispatcher,
		logger:         logger,
		metrics:        deps.Metrics,
		maxUploadBytes: maxUpload,
	}
}

// CreateUser validates input, uploads the optional attachment and persists the user.
func (s *UserService) CreateUser(ctx context.Context, input UserInput, att *domain.Attachment) (user *domain.User, err error) {
	defer s.observe("create", &err)

	user, err = normalize(input, domain.UserStatusActive)
	if err != nil {
		return nil, err
	}
	if err := s.validateAttachment(att); err != nil {
		return nil, err
	}

	stored, err := s.upload(ctx, att)
	if err != nil {
		return nil, err
	}
	user.Profile = stored.URL

	if err := s.users.Create(ctx, user); err != nil {
		s.compensate(ctx, stored)
		return nil, s.mapStoreError(err, user.Email)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventUserCreated,
		UserID:  user.ID,
		Payload: snapshot(user),
	})
	return user, nil
}

// ListUsers returns the requested 1-based page. Pages past the end are empty.
func (s *UserService) ListUsers(ctx context.Context, page int) (result *UserPage, err error) {
	defer s.observe("list", &err)

	if page < 1 {
		page = 1
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	totalPages := TotalPages(total)
	if page > totalPages {
		// also keeps (page-1)*PageSize from overflowing
		return &UserPage{Users: []domain.User{}, TotalPages: totalPages, CurrentPage: page}, nil
	}
	users, err := s.users.List(ctx, PageSize, (page-1)*PageSize)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return &UserPage{
		Users:       users,
		TotalPages:  totalPages,
		CurrentPage: page,
	}, nil
}

// GetUser fetches a user by id.
func (s *UserService) GetUser(ctx context.Context, id string) (user *domain.User, err error) {
	defer s.observe("get", &err)

	if !validID(id) {
		return nil, notFound(id)
	}
	user, err = s.users.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapStoreError(err, "")
	}
	return user, nil
}

// UpdateUser replaces the writable fields of an existing user. Without an
// attachment the stored profile is kept, whatever the input says.
func (s *UserService) UpdateUser(ctx context.Context, id string, input UserInput, att *domain.Attachment) (user *domain.User, err error) {
	defer s.observe("update", &err)

	if !validID(id) {
		return nil, notFound(id)
	}
	existing, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapStoreError(err, "")
	}

	user, err = normalize(input, existing.Status)
	if err != nil {
		return nil, err
	}
	if err := s.validateAttachment(att); err != nil {
		return nil, err
	}
	user.ID = existing.ID
	user.Profile = existing.Profile

	stored, err := s.upload(ctx, att)
	if err != nil {
		return nil, err
	}
	if stored.URL != "" {
		user.Profile = stored.URL
	}

	if err := s.users.Update(ctx, user); err != nil {
		s.compensate(ctx, stored)
		return nil, s.mapStoreError(err, user.Email)
	}

	s.publishEvent(ctx, events.Event{
		Type:   events.EventUserUpdated,
		UserID: user.ID,
		Payload: events.UserUpdatedPayload{
			UserSnapshotPayload: snapshot(user),
			ChangedFields:       changedFields(existing, user),
			ProfileChanged:      existing.Profile != user.Profile,
		},
	})
	return user, nil
}

// DeleteUser hard-deletes a user. Unknown or malformed ids are a no-op.
// The boolean reports whether a record was removed.
func (s *UserService) DeleteUser(ctx context.Context, id string) (removed bool, err error) {
	defer s.observe("delete", &err)

	if !validID(id) {
		return false, nil
	}
	removed, err = s.users.Delete(ctx, id)
	if err != nil {
		return false, apperrors.NewStorageError(err)
	}
	if removed {
		s.publishEvent(ctx, events.Event{Type: events.EventUserDeleted, UserID: id})
	} else {
		s.logger.Debug("delete of missing user", zap.String("user_id", id))
	}
	return removed, nil
}

// SearchUsers matches term case-insensitively against first and last name.
func (s *UserService) SearchUsers(ctx context.Context, term string) (users []domain.User, err error) {
	defer s.observe("search", &err)

	term = strings.TrimSpace(term)
	if term == "" {
		return []domain.User{}, nil
	}
	users, err = s.users.SearchByName(ctx, term)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return users, nil
}

// TotalPages returns ceil(total / PageSize).
func TotalPages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + PageSize - 1) / PageSize
}

func normalize(input UserInput, defaultStatus domain.UserStatus) (*domain.User, error) {
	user := &domain.User{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Mobile:    strings.TrimSpace(input.Mobile),
		Gender:    domain.Gender(strings.TrimSpace(input.Gender)),
		Status:    domain.UserStatus(strings.TrimSpace(input.Status)),
		Location:  strings.TrimSpace(input.Location),
	}

	details := map[string]any{}
	required := map[string]string{
		"firstName": user.FirstName,
		"lastName":  user.LastName,
		"email":     user.Email,
		"mobile":    user.Mobile,
		"location":  user.Location,
	}
	for field, value := range required {
		if value == "" {
			details[field] = "required"
		}
	}
	if user.Email != "" && !strings.Contains(user.Email, "@") {
		details["email"] = "must be an email address"
	}
	switch {
	case user.Gender == "":
		details["gender"] = "required"
	case !user.Gender.Valid():
		details["gender"] = "must be one of Male, Female, Other"
	}
	if user.Status == "" {
		user.Status = defaultStatus
	}
	if !user.Status.Valid() {
		details["status"] = "must be one of Active, Inactive"
	}

	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid user", details)
	}
	return user, nil
}

func (s *UserService) validateAttachment(att *domain.Attachment) error {
	if att == nil {
		return nil
	}
	switch {
	case att.Size() == 0:
		return apperrors.NewValidationError("invalid profile image", map[string]any{"profile": "file is empty"})
	case att.Size() > s.maxUploadBytes:
		return apperrors.NewValidationError("invalid profile image", map[string]any{"profile": "file too large", "maxBytes": s.maxUploadBytes})
	case !strings.HasPrefix(strings.ToLower(att.ContentType), "image/"):
		return apperrors.NewValidationError("invalid profile image", map[string]any{"profile": "must be an image"})
	}
	return nil
}

// upload stores att when present. A nil attachment yields a zero StoredObject.
func (s *UserService) upload(ctx context.Context, att *domain.Attachment) (storage.StoredObject, error) {
	if att == nil {
		return storage.StoredObject{}, nil
	}
	if s.attachments == nil {
		return storage.StoredObject{}, apperrors.NewAttachmentError("profile uploads are not configured", storage.ErrNotConfigured)
	}
	stored, err := s.attachments.Upload(ctx, att)
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			return storage.StoredObject{}, apperrors.NewAttachmentError("profile uploads are not configured", err)
		}
		return storage.StoredObject{}, apperrors.NewAttachmentError("profile upload failed", err)
	}
	return stored, nil
}

// compensate removes an object uploaded for a write that did not happen.
func (s *UserService) compensate(ctx context.Context, stored storage.StoredObject) {
	if stored.Key == "" || s.attachments == nil {
		return
	}
	if err := s.attachments.Delete(context.WithoutCancel(ctx), stored.Key); err != nil {
		s.logger.Warn("orphaned profile image", zap.String("key", stored.Key), zap.Error(err))
		return
	}
	s.logger.Info("removed profile image after failed write", zap.String("key", stored.Key))
}

func (s *UserService) mapStoreError(err error, email string) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return notFound("")
	case errors.Is(err, repository.ErrDuplicateEmail):
		return apperrors.NewConflict("email already exists", map[string]any{"email": email})
	default:
		return apperrors.NewStorageError(err)
	}
}

func (s *UserService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func (s *UserService) observe(operation string, err *error) {
	outcome := "ok"
	if *err != nil {
		outcome = apperrors.ToDomainError(*err).Code
	}
	s.metrics.RecordUserOperation(operation, outcome)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func notFound(id string) error {
	details := map[string]any{}
	if id != "" {
		details["id"] = id
	}
	return apperrors.NewNotFound("user", details)
}

func snapshot(user *domain.User) events.UserSnapshotPayload {
	return events.UserSnapshotPayload{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Status:    string(user.Status),
		Profile:   user.Profile,
	}
}

func changedFields(before, after *domain.User) []string {
	var changed []string
	pairs := []struct {
		name     string
		old, new string
	}{
		{"firstName", before.FirstName, after.FirstName},
		{"lastName", before.LastName, after.LastName},
		{"email", before.Email, after.Email},
		{"mobile", before.Mobile, after.Mobile},
		{"gender", string(before.Gender), string(after.Gender)},
		{"status", string(before.Status), string(after.Status)},
		{"profile", before.Profile, after.Profile},
		{"location", before.Location, after.Location},
	}
	for _, p := range pairs {
		if p.old != p.new {
			changed = append(changed, p.name)
		}
	}
	return changed
}
