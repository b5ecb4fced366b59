// Package cli exposes operational helpers for exercising the auth flow
// against a running backend: login, status, logout, and the admin
// permission matrix.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/taaskr/taaskr-shell/internal/gateway"
	"github.com/taaskr/taaskr-shell/internal/permissions"
	"github.com/taaskr/taaskr-shell/internal/session"
)

// AuthOpsCLI drives the session store from the command line.
type AuthOpsCLI struct {
	store  *session.Store
	stdout io.Writer
}

// AuthOpsOptions configures the helper construction.
type AuthOpsOptions struct {
	// APIOrigin overrides the backend origin; empty defers to the
	// gateway's resolution order.
	APIOrigin string
	Variant   session.Variant
	Logger    *slog.Logger
	Stdout    io.Writer
}

// NewAuthOpsCLI constructs the helper wired to the backend.
func NewAuthOpsCLI(opts AuthOpsOptions) (*AuthOpsCLI, error) {
	if opts.Variant == "" {
		opts.Variant = session.VariantCustomer
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	gw, err := gateway.New(opts.APIOrigin, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &AuthOpsCLI{
		store:  session.New(gw, opts.Variant, opts.Logger),
		stdout: opts.Stdout,
	}, nil
}

// Store exposes the underlying session store.
func (c *AuthOpsCLI) Store() *session.Store {
	return c.store
}

// Login authenticates and prints the resulting identity summary.
func (c *AuthOpsCLI) Login(ctx context.Context, email, password string) error {
	res := c.store.Login(ctx, email, password)
	if !res.OK {
		return fmt.Errorf("login failed: %s", res.Error)
	}
	return c.printIdentity()
}

// Status fetches and prints the current identity, if any.
func (c *AuthOpsCLI) Status(ctx context.Context) error {
	c.store.Initialize(ctx)
	if !c.store.IsAuthenticated() {
		fmt.Fprintln(c.stdout, "not signed in")
		return nil
	}
	return c.printIdentity()
}

// Logout clears the session.
func (c *AuthOpsCLI) Logout(ctx context.Context) error {
	res := c.store.Logout(ctx)
	if !res.OK {
		return fmt.Errorf("logout failed: %s", res.Error)
	}
	fmt.Fprintln(c.stdout, "signed out")
	return nil
}

// PermissionMatrix prints the admin capability matrix derived from the
// current identity's permission codes.
func (c *AuthOpsCLI) PermissionMatrix(ctx context.Context) error {
	c.store.Initialize(ctx)
	id := c.store.Current()
	if id == nil {
		return errors.New("not signed in")
	}

	matrix := permissions.BuildMatrix(id.Permissions)
	modules := permissions.Modules()
	sort.Strings(modules)

	actions := []string{"read", "create", "update", "delete"}
	fmt.Fprintf(c.stdout, "%-10s %s\n", "module", strings.Join(actions, " "))
	for _, module := range modules {
		marks := make([]string, 0, len(actions))
		for _, action := range actions {
			mark := "-"
			if matrix.Allowed(module, action) {
				mark = "x"
			}
			marks = append(marks, mark)
		}
		fmt.Fprintf(c.stdout, "%-10s %s\n", module, strings.Join(marks, "    "))
	}
	return nil
}

func (c *AuthOpsCLI) printIdentity() error {
	id := c.store.Current()
	if id == nil {
		return errors.New("no identity loaded")
	}
	fmt.Fprintf(c.stdout, "signed in as %s <%s>\n", id.Name, id.Email)
	names := make([]string, 0, len(id.Roles)+len(id.RoleNames))
	for _, role := range id.Roles {
		names = append(names, role.Name)
	}
	names = append(names, id.RoleNames...)
	if len(names) > 0 {
		fmt.Fprintf(c.stdout, "roles: %s\n", strings.Join(names, ", "))
	}
	return nil
}
