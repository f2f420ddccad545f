// Package demo provisions a ready-made doctor/patient pair and hands out
// single-use links that log a browser in as either side.
package demo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/geocoder89/medtranslate/internal/actorctx"
	"github.com/geocoder89/medtranslate/internal/cache"
	"github.com/geocoder89/medtranslate/internal/domain/conversation"
	"github.com/geocoder89/medtranslate/internal/domain/user"
	"github.com/geocoder89/medtranslate/internal/security"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("demo link is invalid or expired")
	// ErrAccountConflict means a demo address is held by an account of the other role.
	ErrAccountConflict = errors.New("demo account has the wrong role")
)

const (
	DoctorEmail  = "demo.doctor@" + user.ReservedEmailDomain
	PatientEmail = "demo.patient@" + user.ReservedEmailDomain

	tokenPrefix = "demo:"
)

type UserStore interface {
	Create(ctx context.Context, p user.CreateParams) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
}

type ConversationStore interface {
	FindOrCreate(ctx context.Context, doctorID, patientID int64) (conversation.Conversation, bool, error)
}

type Launch struct {
	ConversationID int64  `json:"conversation_id"`
	DoctorURL      string `json:"doctor_url"`
	PatientURL     string `json:"patient_url"`
}

type grant struct {
	userID         int64
	role           string
	conversationID int64
}

type Service struct {
	users   UserStore
	convs   ConversationStore
	tokens  *cache.Cache
	ttl     time.Duration
	baseURL string
}

func NewService(users UserStore, convs ConversationStore, tokens *cache.Cache, ttl time.Duration, baseURL string) *Service {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{
		users:   users,
		convs:   convs,
		tokens:  tokens,
		ttl:     ttl,
		baseURL: baseURL,
	}
}

// Launch makes sure the demo users and their conversation exist and issues one
// link per side.
func (s *Service) Launch(ctx context.Context) (Launch, error) {
	doctor, err := s.ensureUser(ctx, "Dr. Demo", DoctorEmail, user.RoleDoctor)
	if err != nil {
		return Launch{}, err
	}
	patient, err := s.ensureUser(ctx, "Demo Patient", PatientEmail, user.RolePatient)
	if err != nil {
		return Launch{}, err
	}

	conv, _, err := s.convs.FindOrCreate(ctx, doctor.ID, patient.ID)
	if err != nil {
		return Launch{}, fmt.Errorf("demo conversation: %w", err)
	}

	return Launch{
		ConversationID: conv.ID,
		DoctorURL:      s.link(user.RoleDoctor, s.issue(grant{doctor.ID, user.RoleDoctor, conv.ID})),
		PatientURL:     s.link(user.RolePatient, s.issue(grant{patient.ID, user.RolePatient, conv.ID})),
	}, nil
}

// Redeem consumes a token. A token presented on the wrong side's link is burnt.
func (s *Service) Redeem(ctx context.Context, token, role string) (actorctx.Identity, int64, error) {
	if token == "" {
		return actorctx.Identity{}, 0, ErrInvalidToken
	}

	v, ok := s.tokens.Take(tokenPrefix + token)
	if !ok {
		return actorctx.Identity{}, 0, ErrInvalidToken
	}
	g, ok := v.(grant)
	if !ok || g.role != role {
		return actorctx.Identity{}, 0, ErrInvalidToken
	}

	u, err := s.users.GetByID(ctx, g.userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return actorctx.Identity{}, 0, ErrInvalidToken
		}
		return actorctx.Identity{}, 0, err
	}

	return actorctx.Identity{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}, g.conversationID, nil
}

func (s *Service) issue(g grant) string {
	token := uuid.NewString()
	s.tokens.SetWithTTL(tokenPrefix+token, g, s.ttl)
	return token
}

func (s *Service) link(role, token string) string {
	return s.baseURL + "/demo/" + role + "?token=" + url.QueryEscape(token)
}

func (s *Service) ensureUser(ctx context.Context, name, email, role string) (user.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return checkRole(u, role)
	}
	if !errors.Is(err, user.ErrNotFound) {
		return user.User{}, err
	}

	// demo accounts are reachable only through links
	hash, err := security.HashPassword(uuid.NewString())
	if err != nil {
		return user.User{}, err
	}

	u, err = s.users.Create(ctx, user.CreateParams{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if errors.Is(err, user.ErrDuplicateEmail) {
		// lost a race with another launcher
		if u, err = s.users.GetByEmail(ctx, email); err != nil {
			return user.User{}, err
		}
		return checkRole(u, role)
	}
	return u, err
}

func checkRole(u user.User, role string) (user.User, error) {
	if u.Role != role {
		return user.User{}, fmt.Errorf("%w: %s is a %s", ErrAccountConflict, u.Email, u.Role)
	}
	return u, nil
}
