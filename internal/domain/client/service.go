package client

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

// firstClientSeq is the numeric suffix of the first issued client code.
const firstClientSeq = 2500

type Service struct {
	clients ClientRepository
}

func NewService(clients ClientRepository) *Service {
	return &Service{clients: clients}
}

func (s *Service) CreateClient(ctx context.Context, c *Client) error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(c.Email, "@") {
		return fmt.Errorf("invalid email: %s", c.Email)
	}

	seq, err := s.clients.NextSequence(ctx)
	if err != nil {
		return fmt.Errorf("allocate client code: %w", err)
	}
	c.ClientID = fmt.Sprintf("JGLSP%d", seq)

	token, err := s.uniqueToken(ctx)
	if err != nil {
		return err
	}
	c.Token = token

	return s.clients.Create(ctx, c)
}

// uniqueToken draws tracking tokens until one is unused. The token space is
// small (4 digits) so collisions are expected at scale.
func (s *Service) uniqueToken(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 20; attempt++ {
		token := generateToken()
		if _, err := s.clients.GetByToken(ctx, token); err != nil {
			return token, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique tracking token")
}

func (s *Service) GetClient(ctx context.Context, id uuid.UUID) (*Client, error) {
	return s.clients.GetByID(ctx, id)
}

// GetClientByToken resolves a tracking token to its client. Used by the
// unauthenticated status-tracking endpoint.
func (s *Service) GetClientByToken(ctx context.Context, token string) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("token is required")
	}
	return s.clients.GetByToken(ctx, token)
}

func (s *Service) UpdateClient(ctx context.Context, c *Client) error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return fmt.Errorf("invalid email: %s", c.Email)
	}
	return s.clients.Update(ctx, c)
}

func (s *Service) DeleteClient(ctx context.Context, id uuid.UUID) error {
	return s.clients.Delete(ctx, id)
}

func (s *Service) ListClients(ctx context.Context, limit, offset int) ([]*Client, int, error) {
	return s.clients.List(ctx, limit, offset)
}

func (s *Service) SearchClients(ctx context.Context, params map[string]string, limit, offset int) ([]*Client, int, error) {
	return s.clients.Search(ctx, params, limit, offset)
}

// generateToken produces a JGL-TKN-#### tracking token. Uniqueness is
// enforced by the unique constraint on client.token.
func generateToken() string {
	return fmt.Sprintf("JGL-TKN-%04d", rand.Intn(10000))
}
