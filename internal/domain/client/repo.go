package client

import (
	"context"

	"github.com/google/uuid"
)

type ClientRepository interface {
	Create(ctx context.Context, c *Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*Client, error)
	GetByToken(ctx context.Context, token string) (*Client, error)
	Update(ctx context.Context, c *Client) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Client, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Client, int, error)
	NextSequence(ctx context.Context) (int, error)
}
