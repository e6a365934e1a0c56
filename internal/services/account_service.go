package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/models"
)

const TokenTTL = 24 * time.Hour

const minPasswordLen = 8

// AccountService is the built-in identity provider: it registers accounts and
// issues HS256 tokens whose subject is the account id.
type AccountService struct {
	db     core.DbClient
	secret []byte
	now    func() time.Time
}

func NewAccountService(db core.DbClient, jwtSecret string) *AccountService {
	return &AccountService{db: db, secret: []byte(jwtSecret), now: time.Now}
}

func (s *AccountService) Signup(ctx context.Context, email, password, name string) (*models.Account, string, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, "", fmt.Errorf("%w: email must be a valid address", core.ErrValidation)
	}
	if len(password) < minPasswordLen {
		return nil, "", fmt.Errorf("%w: password must be at least %d characters", core.ErrValidation, minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	account := &models.Account{
		Email:        strings.ToLower(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
	}
	if err := s.db.CreateAccount(ctx, account); err != nil {
		return nil, "", err
	}

	token, err := s.IssueToken(account.ID)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

func (s *AccountService) Login(ctx context.Context, email, password string) (*models.Account, string, error) {
	account, err := s.db.GetAccountByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, "", err
	}
	if account == nil || bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, "", fmt.Errorf("%w: invalid credentials", core.ErrNotAuthenticated)
	}

	token, err := s.IssueToken(account.ID)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// IssueToken signs a token for accountID valid for TokenTTL.
func (s *AccountService) IssueToken(accountID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (*models.Account, error) {
	return s.db.GetAccountByID(ctx, id)
}
