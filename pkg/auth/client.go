// Package auth wraps the login and registration calls. Passwords are
// digested before they leave the process; the returned session is for the
// caller to install.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sdejongh/greenbox/pkg/api"
	"github.com/sdejongh/greenbox/pkg/logging"
	"github.com/sdejongh/greenbox/pkg/models"
	"github.com/sdejongh/greenbox/pkg/session"
)

// CodeUsernameExists is the registration response for a taken username
const CodeUsernameExists = 2

// ErrUsernameExists is returned by Register when the username is taken
var ErrUsernameExists = errors.New("username already exists")

// Doer sends one backend request
type Doer interface {
	Do(ctx context.Context, req api.Request, out any) error
}

// Client performs authentication requests
type Client struct {
	doer      Doer
	endpoints api.Endpoints
	digester  Digester
	logger    logging.Logger
}

// NewClient creates an auth client. A nil digester means MD5.
func NewClient(doer Doer, endpoints api.Endpoints, digester Digester, logger logging.Logger) *Client {
	if digester == nil {
		digester = MD5Digest{}
	}
	return &Client{
		doer:      doer,
		endpoints: endpoints.WithDefaults(),
		digester:  digester,
		logger:    logging.OrNull(logger),
	}
}

type loginRequest struct {
	User string `json:"user"`
	Pwd  string `json:"pwd"`
}

type loginResponse struct {
	api.Envelope
	Token string `json:"token"`
}

// Login authenticates and returns a new session
func (c *Client) Login(ctx context.Context, username, password string) (*session.Session, error) {
	if username == "" || password == "" {
		return nil, &models.ValidationError{Field: "Username", Message: "username and password are required"}
	}

	pwd, err := c.digester.Digest(password)
	if err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := c.doer.Do(ctx, api.Request{
		Endpoint: c.endpoints.Login,
		JSON:     loginRequest{User: username, Pwd: pwd},
	}, &resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := resp.Err("login failed"); err != nil {
		c.logger.Warn(ctx, "login rejected", logging.Fields{"user": username, "code": resp.Code})
		return nil, fmt.Errorf("login: %w", err)
	}

	c.logger.Info(ctx, "logged in", logging.Fields{"user": username})
	return &session.Session{Username: username, Token: resp.Token}, nil
}

type registerRequest struct {
	UserName string `json:"userName"`
	FirstPwd string `json:"firstPwd"`
	NickName string `json:"nickName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type registerResponse struct {
	api.Envelope
	Token  string    `json:"token"`
	UserID models.ID `json:"userId"`
}

// Register validates the form, creates the account and returns a session.
// A taken username yields ErrUsernameExists and no session.
func (c *Client) Register(ctx context.Context, fields RegisterFields) (*session.Session, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	pwd, err := c.digester.Digest(fields.Password)
	if err != nil {
		return nil, err
	}

	var resp registerResponse
	if err := c.doer.Do(ctx, api.Request{
		Endpoint: c.endpoints.Register,
		JSON: registerRequest{
			UserName: fields.Username,
			FirstPwd: pwd,
			NickName: fields.Nickname,
			Email:    fields.Email,
			Phone:    fields.Phone,
		},
	}, &resp); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	switch resp.Code {
	case api.CodeOK:
	case CodeUsernameExists:
		c.logger.Info(ctx, "username taken", logging.Fields{"user": fields.Username})
		return nil, ErrUsernameExists
	default:
		return nil, fmt.Errorf("register: %w", resp.Err("register failed"))
	}

	c.logger.Info(ctx, "registered", logging.Fields{"user": fields.Username, "user_id": resp.UserID.String()})
	return &session.Session{
		Username: fields.Username,
		Token:    resp.Token,
		ID:       resp.UserID,
		Nickname: fields.Nickname,
	}, nil
}
