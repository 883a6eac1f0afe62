package moderately

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/moderately-ai/moderately-go/internal/apierror"
)

// recentUserWindow is how far back a user still counts as recently created.
const recentUserWindow = 30 * 24 * time.Hour

// User is a platform user.
type User struct {
	UserID    string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	client *Client
}

// HasName reports whether the user set a display name.
func (u *User) HasName() bool {
	return u.Name != nil && *u.Name != ""
}

// DisplayName returns the user's name, falling back to the local part of
// the email address.
func (u *User) DisplayName() string {
	if u.HasName() {
		return *u.Name
	}

	if local, _, found := strings.Cut(u.Email, "@"); found {
		return local
	}

	return u.Email
}

// IsRecent reports whether the user was created within the last 30 days.
func (u *User) IsRecent() bool {
	return time.Since(u.CreatedAt) <= recentUserWindow
}

// FormattedCreatedAt renders the creation time for display.
func (u *User) FormattedCreatedAt() string {
	return u.CreatedAt.Format("2006-01-02 15:04")
}

// UpdateProfile updates the user's profile in place.
func (u *User) UpdateProfile(ctx context.Context, params *UserProfileParams) error {
	if u.client == nil {
		return apierror.ErrNotAttached
	}

	fresh, err := u.client.Users.UpdateProfile(ctx, u.UserID, params)
	if err != nil {
		return err
	}

	*u = *fresh

	return nil
}

// Teams lists the teams the user belongs to.
func (u *User) Teams(ctx context.Context) ([]*Team, error) {
	if u.client == nil {
		return nil, apierror.ErrNotAttached
	}

	return u.client.Users.Teams(ctx, u.UserID)
}

// Refresh refetches the user in place.
func (u *User) Refresh(ctx context.Context) error {
	if u.client == nil {
		return apierror.ErrNotAttached
	}

	fresh, err := u.client.Users.Retrieve(ctx, u.UserID)
	if err != nil {
		return err
	}

	*u = *fresh

	return nil
}

// Team is a group of users sharing platform resources.
type Team struct {
	TeamID    string    `json:"teamId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// UsersService manages platform users.
// Access it via Client.Users.
type UsersService struct {
	client *Client
}

// UserListParams filter user listings.
type UserListParams struct {
	ListParams
}

// UserProfileParams describe a profile update.
type UserProfileParams struct {
	Name string `json:"name" validate:"required"`
}

// List fetches one page of the team's users.
func (s *UsersService) List(ctx context.Context, params *UserListParams) (*Page[*User], error) {
	if params == nil {
		params = &UserListParams{}
	}

	if err := validateParams("user list params", params); err != nil {
		return nil, err
	}

	query := params.values()
	query.Set("teamIds", s.client.TeamID())

	var page Page[*User]
	if err := s.client.get(ctx, "/users", query, &page); err != nil {
		return nil, err
	}

	s.attach(page.Items...)

	return &page, nil
}

// All iterates over every user, fetching pages lazily.
func (s *UsersService) All(ctx context.Context, params *UserListParams) iter.Seq2[*User, error] {
	return allPages(ctx, func(ctx context.Context, page int) (*Page[*User], error) {
		pageParams := UserListParams{}
		if params != nil {
			pageParams = *params
		}

		pageParams.Page = page

		return s.List(ctx, &pageParams)
	})
}

// Retrieve fetches a user by ID.
func (s *UsersService) Retrieve(ctx context.Context, userID string) (*User, error) {
	var user User
	if err := s.client.get(ctx, "/users/"+userID, nil, &user); err != nil {
		return nil, err
	}

	s.attach(&user)

	return &user, nil
}

// UpdateProfile updates a user's profile.
func (s *UsersService) UpdateProfile(ctx context.Context, userID string, params *UserProfileParams) (*User, error) {
	if params == nil {
		return nil, &apierror.ValidationError{Message: "user profile params are required"}
	}

	if err := validateParams("user profile params", params); err != nil {
		return nil, err
	}

	var user User
	if err := s.client.patch(ctx, "/users/"+userID, params, &user); err != nil {
		return nil, err
	}

	s.attach(&user)

	return &user, nil
}

// Teams lists the teams a user belongs to.
func (s *UsersService) Teams(ctx context.Context, userID string) ([]*Team, error) {
	var teams []*Team
	if err := s.client.get(ctx, "/users/"+userID+"/teams", nil, &teams); err != nil {
		return nil, err
	}

	return teams, nil
}

func (s *UsersService) attach(users ...*User) {
	for _, u := range users {
		u.client = s.client
	}
}
