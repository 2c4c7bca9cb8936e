package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"budgetly/internal/core"
)

// Categories lists the user's categories, optionally restricted to one type.
func (c *Client) Categories(ctx context.Context, filter core.CategoryType) ([]core.Category, error) {
	path := "/api/categories"
	if filter != "" {
		path += "?type=" + url.QueryEscape(string(filter))
	}
	var out []core.Category
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Category(ctx context.Context, id int64) (*core.Category, error) {
	var out core.Category
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/categories/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCategory(ctx context.Context, in core.CategoryInput) (*core.Category, error) {
	var out core.Category
	if err := c.call(ctx, http.MethodPost, "/api/categories", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, in core.CategoryInput) (*core.Category, error) {
	var out core.Category
	if err := c.call(ctx, http.MethodPut, fmt.Sprintf("/api/categories/%d", id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/categories/%d", id), nil, nil)
}
