package graph

import (
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/pkg/errors"
)

const (
	DefaultScope       = "User.Read"
	DefaultRedirectURL = "http://localhost"
)

// NewInteractiveCredential opens the system browser for sign-in and listens
// on the localhost redirect for the authorization code.
func NewInteractiveCredential(clientID, tenantID string) (*azidentity.InteractiveBrowserCredential, error) {
	cred, err := azidentity.NewInteractiveBrowserCredential(&azidentity.InteractiveBrowserCredentialOptions{
		ClientID:    clientID,
		TenantID:    tenantID,
		RedirectURL: DefaultRedirectURL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not create interactive browser credential")
	}
	return cred, nil
}
