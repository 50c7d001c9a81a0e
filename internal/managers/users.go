package managers

import (
	"context"
	"fmt"

	"github.com/horusctf/horus/internal/api"
)

// AdminUsers represents user management page.
type AdminUsers struct {
	core  *Core
	users *Resource[api.Users]
}

func NewAdminUsers(core *Core) *AdminUsers {
	return &AdminUsers{
		core:  core,
		users: NewResource(core, "users", core.Client.ObserveUsers),
	}
}

func (p *AdminUsers) Load(ctx context.Context) error {
	return p.users.Reload(ctx)
}

func (p *AdminUsers) Close() {
	p.users.Close()
}

func (p *AdminUsers) Users() api.Users {
	return p.users.Value()
}

func (p *AdminUsers) user(id string) (api.User, bool) {
	for _, user := range p.Users() {
		if SameID(user.ID, id) {
			return user, true
		}
	}
	return api.User{}, false
}

// ToggleAdmin grants or revokes admin privileges.
func (p *AdminUsers) ToggleAdmin(ctx context.Context, id string) error {
	return p.users.Mutate(ctx, "Unable to update user", func(ctx context.Context) (string, error) {
		user, ok := p.user(id)
		if !ok {
			return "", fmt.Errorf("user %q is not loaded", id)
		}
		isAdmin := !user.IsAdmin
		if err := p.core.Client.UpdateUser(ctx, user.ID, api.UpdateUserForm{
			IsAdmin: &isAdmin,
		}); err != nil {
			return "", err
		}
		if isAdmin {
			return fmt.Sprintf("User %s is admin now", user.Username), nil
		}
		return fmt.Sprintf("User %s is not admin anymore", user.Username), nil
	})
}

func (p *AdminUsers) Delete(ctx context.Context, id string) error {
	return p.users.Mutate(ctx, "Unable to delete user", func(ctx context.Context) (string, error) {
		if err := p.core.Client.DeleteUser(ctx, id); err != nil {
			return "", err
		}
		return "User deleted", nil
	})
}
