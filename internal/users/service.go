package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/heygw44/snapstock/internal/models"
)

var ErrInvalidInput = errors.New("invalid user input")

const passwordSpecials = "@$!%*#?&"

// PasswordHasher produces the stored digest for a new password.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// SignUpInput is the data needed to open an account.
type SignUpInput struct {
	Email    string
	Password string
	Nickname string
}

// UpdateInput carries the profile fields to change; nil fields are left as is.
type UpdateInput struct {
	Nickname *string
	Password *string
}

// Service encapsulates user-related business logic
type Service struct {
	repo   Repository
	hasher PasswordHasher
	now    func() time.Time
}

func NewService(r Repository, h PasswordHasher) *Service {
	return &Service{repo: r, hasher: h, now: time.Now}
}

// SignUp creates a USER account after checking the password policy and uniqueness.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Nickname = strings.TrimSpace(in.Nickname)
	if err := validateSignUp(in); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateEmail
	}
	exists, err = s.repo.ExistsByNickname(ctx, in.Nickname)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateNickname
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Email:        in.Email,
		PasswordHash: digest,
		Nickname:     in.Nickname,
		Role:         models.RoleUser,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetMyInfo returns an active user; deleted accounts are reported as not found.
func (s *Service) GetMyInfo(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.IsDeleted() {
		return nil, ErrNotFound
	}
	return u, nil
}

// UpdateMyInfo changes the nickname and/or password of an active account.
// At least one field must be set.
func (s *Service) UpdateMyInfo(ctx context.Context, id int64, in UpdateInput) (*models.User, error) {
	if in.Nickname == nil && in.Password == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	u, err := s.GetMyInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Nickname != nil {
		nickname := strings.TrimSpace(*in.Nickname)
		if err := validateNickname(nickname); err != nil {
			return nil, err
		}
		if nickname != u.Nickname {
			taken, err := s.repo.ExistsByNickname(ctx, nickname)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrDuplicateNickname
			}
			u.Nickname = nickname
		}
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		digest, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = digest
	}
	u.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Withdraw soft-deletes the account.
func (s *Service) Withdraw(ctx context.Context, id int64) error {
	return s.repo.SoftDelete(ctx, id, s.now())
}

func validateSignUp(in SignUpInput) error {
	if in.Email == "" || len(in.Email) > 255 || !strings.Contains(in.Email, "@") {
		return fmt.Errorf("%w: email must be a valid address of at most 255 characters", ErrInvalidInput)
	}
	if err := validateNickname(in.Nickname); err != nil {
		return err
	}
	return validatePassword(in.Password)
}

func validateNickname(n string) error {
	if c := utf8.RuneCountInString(n); c < 2 || c > 20 {
		return fmt.Errorf("%w: nickname must be 2 to 20 characters", ErrInvalidInput)
	}
	return nil
}

func validatePassword(p string) error {
	if !validPassword(p) {
		return fmt.Errorf("%w: password must be 8 to 20 characters with a letter, a digit and one of %s", ErrInvalidInput, passwordSpecials)
	}
	return nil
}

func validPassword(p string) bool {
	if len(p) < 8 || len(p) > 20 {
		return false
	}
	var letter, digit, special bool
	for _, r := range p {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}
	return letter && digit && special
}
