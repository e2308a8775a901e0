package services

import (
	"context"
	"errors"

	"github.com/ClarenceCat/awf-group-api/logging"
	"github.com/ClarenceCat/awf-group-api/models"
	"github.com/ClarenceCat/awf-group-api/repositories"
	"github.com/ClarenceCat/awf-group-api/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string             `json:"token"`
	User  models.UserProfile `json:"user"`
}

type AuthService struct {
	users repositories.UserRepository
	jwt   *utils.JWTService
}

func NewAuthService(users repositories.UserRepository, jwt *utils.JWTService) *AuthService {
	return &AuthService{users: users, jwt: jwt}
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
		return nil, validationError("Credentials are missing")
	}

	_, err := s.users.FindByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return nil, conflictError("A user with this email already exists")
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, storageError("failed to register user", err)
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, storageError("failed to register user", err)
	}

	user := &models.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  hashed,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, conflictError("A user with this email already exists")
		}
		return nil, storageError("failed to register user", err)
	}
	logging.Logger.Infof("Event ID: USER_REGISTERED, Description: Saved user %s", user.ID.Hex())

	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, validationError("Must provide email and password")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, unauthenticatedError("Invalid password or email")
	}
	if err != nil {
		return nil, storageError("failed to log in", err)
	}

	if !utils.CheckPassword(user.Password, req.Password) {
		logging.Logger.Warnf("Event ID: LOGIN_BAD_PASSWORD, Description: Wrong password for user %s", user.ID.Hex())
		return nil, unauthenticatedError("Invalid password or email")
	}

	return s.issue(user)
}

// Authenticate verifies a bearer token and resolves its subject.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, unauthenticatedError("You must be logged in.")
	}
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, unauthenticatedError("You must be logged in.")
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, unauthenticatedError("You must be logged in.")
	}

	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, unauthenticatedError("You must be logged in.")
	}
	if err != nil {
		return nil, storageError("failed to authenticate", err)
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResponse, error) {
	token, err := s.jwt.GenerateToken(user.ID.Hex())
	if err != nil {
		return nil, storageError("failed to generate token", err)
	}
	return &AuthResponse{Token: token, User: user.Profile()}, nil
}
