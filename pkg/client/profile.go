package client

import (
	"context"
	"errors"
	"net/http"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
)

type ProfileService struct {
	client *Client
}

func (c *Client) Profile() *ProfileService {
	return &ProfileService{client: c}
}

func (p *ProfileService) Get(ctx context.Context) (*v1.Officer, error) {
	var officer v1.Officer
	if err := p.client.do(ctx, "profile.get", http.MethodGet, "/officer/profile", nil, nil, &officer); err != nil {
		return nil, err
	}
	return &officer, nil
}

// Update applies the non-empty fields of update and returns the stored
// profile. Backends that answer without a body yield nil.
func (p *ProfileService) Update(ctx context.Context, update v1.ProfileUpdate) (*v1.Officer, error) {
	if update.Empty() {
		return nil, errors.New("nothing to update")
	}
	var officer v1.Officer
	if err := p.client.do(ctx, "profile.update", http.MethodPut, "/officer/profile", nil, update, &officer); err != nil {
		return nil, err
	}
	if officer == (v1.Officer{}) {
		return nil, nil
	}
	return &officer, nil
}
