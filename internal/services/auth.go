package services

import (
	"context"
	"errors"
	"fmt"

	"encrypted-quest-backend/internal/keys"
	"encrypted-quest-backend/internal/models"

	"github.com/sirupsen/logrus"
)

var errBadSignature = errors.New("signature does not match address")

// AuthService signs players in by having them sign a one-time challenge
// with their ledger key.
type AuthService struct {
	store Store
	jwt   *JWTService
	log   *logrus.Logger
}

func NewAuthService(store Store, jwtService *JWTService, log *logrus.Logger) *AuthService {
	return &AuthService{store: store, jwt: jwtService, log: log}
}

// LoginMessage is the text a player signs to prove control of an address.
func LoginMessage(addr models.Address, challenge string) string {
	return fmt.Sprintf("Sign in to Encrypted Quest\nAddress: %s\nNonce: %s", addr.Hex(), challenge)
}

func (s *AuthService) Challenge(ctx context.Context, addr models.Address) (*models.ChallengeResponse, error) {
	if addr.IsZero() {
		return nil, fmt.Errorf("address is required")
	}
	nonce, err := models.GenerateChallenge()
	if err != nil {
		return nil, err
	}
	msg := LoginMessage(addr, nonce)
	if err := s.store.SaveChallenge(ctx, addr, msg, TTLChallenge); err != nil {
		return nil, fmt.Errorf("failed to save challenge: %v", err)
	}
	return &models.ChallengeResponse{Address: addr, Challenge: msg}, nil
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	allowed, err := s.store.CheckRateLimit(ctx, req.Address.Hex(), "login", DefaultRateLimitLogin, rateWindow)
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %v", err)
	}
	if !allowed {
		return nil, models.ErrRateLimited
	}

	msg, err := s.store.ConsumeChallenge(ctx, req.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}

	signer, err := keys.RecoverAddress(keys.MessageDigest(msg), req.Signature)
	if err != nil || signer != req.Address {
		s.log.WithField("address", req.Address.Hex()).Warn("login signature rejected")
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, errBadSignature)
	}

	token, expiresAt, err := s.jwt.GenerateToken(req.Address)
	if err != nil {
		return nil, err
	}

	s.log.WithField("address", req.Address.Hex()).Info("player signed in")
	return &models.LoginResponse{Token: token, ExpiresAt: expiresAt.Unix()}, nil
}
