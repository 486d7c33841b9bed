// Package identity supplies the current user from static
// configuration. There is no auth flow here; the user id and API key
// come from the config file, and an empty user id means guest mode.
package identity

import (
	"github.com/feltworks/rangesync/internal/application/ports"
	"github.com/feltworks/rangesync/internal/infrastructure/config"
)

// ConfigIdentity resolves the current user from the identity section
// of the configuration.
type ConfigIdentity struct {
	user     ports.User
	signedIn bool
}

// FromConfig builds an identity from the loaded configuration. A blank
// user id yields a guest identity.
func FromConfig(cfg *config.Config) *ConfigIdentity {
	if cfg == nil || cfg.Identity.UserID == "" {
		return &ConfigIdentity{}
	}
	return &ConfigIdentity{
		user: ports.User{
			ID:          cfg.Identity.UserID,
			DisplayName: cfg.Identity.DisplayName,
		},
		signedIn: true,
	}
}

// Guest returns a signed-out identity.
func Guest() *ConfigIdentity {
	return &ConfigIdentity{}
}

// CurrentUser returns the configured user, or false in guest mode.
func (i *ConfigIdentity) CurrentUser() (ports.User, bool) {
	return i.user, i.signedIn
}

var _ ports.Identity = (*ConfigIdentity)(nil)
