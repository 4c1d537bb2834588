// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const (
	MaxUsernameLen = 36
	// UserIDSeparator joins the display name and the client id inside an
	// external user id. Display names must not contain it.
	UserIDSeparator = "#"
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUsernameInvalid = errors.New("username must not contain '#'")
)

// ExternalUserID is the decoded form of the control plane's external user
// id, "displayName#clientId". The clientId tells apart several tabs of
// the same person.
type ExternalUserID struct {
	DisplayName string
	ClientID    string
}

// ValidateUsername reports why name cannot be used as a display name.
func ValidateUsername(name string) error {
	if len(name) == 0 {
		return ErrUsernameEmpty
	}
	if len(name) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	if strings.Contains(name, UserIDSeparator) {
		return ErrUsernameInvalid
	}
	return nil
}

// NewExternalUserID is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewExternalUserID(displayName, clientID string) (ExternalUserID, error) {
	if err := ValidateUsername(displayName); err != nil {
		return ExternalUserID{}, err
	}
	return ExternalUserID{DisplayName: displayName, ClientID: clientID}, nil
}

func (u ExternalUserID) String() string {
	return u.DisplayName + UserIDSeparator + u.ClientID
}

// ParseExternalUserID splits at the first '#'. A value without a separator
// is taken whole as the display name with an empty client id.
func ParseExternalUserID(s string) ExternalUserID {
	name, client, _ := strings.Cut(s, UserIDSeparator)
	return ExternalUserID{DisplayName: name, ClientID: client}
}

// DisplayName returns the human readable part of an external user id.
func DisplayName(externalUserID string) string {
	return ParseExternalUserID(externalUserID).DisplayName
}
