package handlers

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/user-directory/internal/api/dto"
	"github.com/spec-kit/user-directory/internal/domain"
	"github.com/spec-kit/user-directory/internal/service"
	apperrors "github.com/spec-kit/user-directory/pkg/util/errorutil"
)

const profileField = "profile"

// UsersHandler exposes the user directory endpoints.
type UsersHandler struct {
	users  *service.UserService
	logger *zap.Logger
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService, logger *zap.Logger) *UsersHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsersHandler{users: users, logger: logger}
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	input, att, err := parseUserForm(c)
	if err != nil {
		return err
	}

	user, err := h.users.CreateUser(c.UserContext(), input, att)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewUserResponse(user))
}

// List handles GET /api/users?page=N.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)

	result, err := h.users.ListUsers(c.UserContext(), page)
	if err != nil {
		return err
	}
	return c.JSON(dto.UserListResponse{
		Users:       dto.NewUserResponses(result.Users),
		TotalPages:  result.TotalPages,
		CurrentPage: result.CurrentPage,
	})
}

// Get handles GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.UserEnvelope{Users: dto.NewUserResponse(user)})
}

// Update handles PUT /api/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	input, att, err := parseUserForm(c)
	if err != nil {
		return err
	}

	user, err := h.users.UpdateUser(c.UserContext(), c.Params("id"), input, att)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Delete handles DELETE /api/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	removed, err := h.users.DeleteUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	h.logger.Info("user delete", zap.String("user_id", id), zap.Bool("removed", removed))
	return c.JSON(dto.MessageResponse{Message: "User deleted successfully"})
}

// Search handles GET /api/users/search/:key.
func (h *UsersHandler) Search(c *fiber.Ctx) error {
	users, err := h.users.SearchUsers(c.UserContext(), c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponses(users))
}

// ExportCSV handles GET /api/users/export/csv.
func (h *UsersHandler) ExportCSV(c *fiber.Ctx) error {
	var buf bytes.Buffer
	rows, err := h.users.ExportAllUsersCSV(c.UserContext(), &buf)
	if err != nil {
		return err
	}
	h.logger.Debug("users exported", zap.Int("rows", rows))

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="users.csv"`)
	return c.Send(buf.Bytes())
}

// parseUserForm reads user fields from any supported body and the optional
// profile image from a multipart body.
func parseUserForm(c *fiber.Ctx) (service.UserInput, *domain.Attachment, error) {
	var req dto.UserRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return service.UserInput{}, nil, apperrors.NewValidationError("invalid payload", map[string]any{"body": err.Error()})
		}
	}
	input := service.UserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Mobile:    req.Mobile,
		Gender:    req.Gender,
		Status:    req.Status,
		Location:  req.Location,
		Profile:   req.Profile,
	}

	if !strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm) {
		return input, nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return service.UserInput{}, nil, apperrors.NewValidationError("invalid multipart body", map[string]any{"body": err.Error()})
	}
	files := form.File[profileField]
	if len(files) == 0 {
		return input, nil, nil
	}
	att, err := readAttachment(files[0])
	if err != nil {
		return service.UserInput{}, nil, apperrors.NewValidationError("unreadable profile image", map[string]any{"profile": err.Error()})
	}
	return input, att, nil
}

func readAttachment(fh *multipart.FileHeader) (*domain.Attachment, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	contentType := fh.Header.Get(fiber.HeaderContentType)
	if contentType == "" || contentType == fiber.MIMEOctetStream {
		contentType = http.DetectContentType(data)
	}
	return &domain.Attachment{
		FileName:    fh.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}
