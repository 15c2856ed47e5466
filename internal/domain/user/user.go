// Package user holds the User entity: account identity, site role, and the
// badge/visibility fields every other aggregate embeds by reference.
package user

import (
	"strings"
	"time"

	"github.com/modhub/platform/internal/idcodec"
)

// SiteRole is the platform-wide role, independent of any team membership.
// Moderator and Admin short-circuit PermissionResolver to "all bits".
type SiteRole string

const (
	RoleDeveloper SiteRole = "developer"
	RoleModerator SiteRole = "moderator"
	RoleAdmin     SiteRole = "admin"
)

func (r SiteRole) IsElevated() bool {
	return r == RoleModerator || r == RoleAdmin
}

// Badge is a bit in the user's badge bitset (cosmetic/profile flags).
type Badge uint64

const (
	BadgeEarlyAdopter Badge = 1 << iota
	BadgeAlphaTester
	BadgeContributor
	BadgeTranslator
)

// AvatarURLs pairs the public CDN-served avatar with the private raw upload,
// mirroring the icon-url-pair convention used by Project and Organization.
type AvatarURLs struct {
	Public string
	Raw    string
}

// User is the platform account entity. Soft-retired users keep their row
// (anonymized) so historical versions/messages/payouts keep referential
// integrity; Retire clears PII fields in place rather than deleting the row.
type User struct {
	id                  idcodec.UserID
	username            string
	displayName         string
	email               string
	bio                 string
	avatar              AvatarURLs
	role                SiteRole
	badges              Badge
	allowFriendRequests bool
	createdAt           time.Time
	retiredAt           *time.Time
}

func New(id idcodec.UserID, username, email string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if email != "" {
		if err := ValidateEmail(email); err != nil {
			return nil, err
		}
	}
	return &User{
		id:                  id,
		username:            username,
		email:               strings.ToLower(email),
		role:                RoleDeveloper,
		allowFriendRequests: true,
		createdAt:           time.Now().UTC(),
	}, nil
}

// Reconstruct rebuilds a User from persisted fields, bypassing validation
// (the Store is the only caller; rows it returns are already valid).
func Reconstruct(
	id idcodec.UserID,
	username, displayName, email, bio string,
	avatar AvatarURLs,
	role SiteRole,
	badges Badge,
	allowFriendRequests bool,
	createdAt time.Time,
	retiredAt *time.Time,
) *User {
	return &User{
		id: id, username: username, displayName: displayName, email: email,
		bio: bio, avatar: avatar, role: role, badges: badges,
		allowFriendRequests: allowFriendRequests, createdAt: createdAt, retiredAt: retiredAt,
	}
}

func (u *User) ID() idcodec.UserID          { return u.id }
func (u *User) Username() string            { return u.username }
func (u *User) DisplayName() string         { return u.displayName }
func (u *User) Email() string               { return u.email }
func (u *User) Bio() string                 { return u.bio }
func (u *User) Avatar() AvatarURLs          { return u.avatar }
func (u *User) Role() SiteRole              { return u.role }
func (u *User) Badges() Badge               { return u.badges }
func (u *User) AllowFriendRequests() bool   { return u.allowFriendRequests }
func (u *User) CreatedAt() time.Time        { return u.createdAt }
func (u *User) RetiredAt() *time.Time       { return u.retiredAt }
func (u *User) IsRetired() bool             { return u.retiredAt != nil }
func (u *User) HasBadge(b Badge) bool       { return u.badges&b != 0 }

func (u *User) UpdateProfile(displayName, bio string) {
	u.displayName = strings.TrimSpace(displayName)
	u.bio = bio
}

func (u *User) ChangeUsername(username string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	u.username = username
	return nil
}

func (u *User) ChangeEmail(email string) error {
	if email == "" {
		u.email = ""
		return nil
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	u.email = strings.ToLower(email)
	return nil
}

func (u *User) SetRole(role SiteRole) { u.role = role }

func (u *User) Retire() error {
	if u.retiredAt != nil {
		return ErrAlreadyRetired
	}
	now := time.Now().UTC()
	u.retiredAt = &now
	u.displayName = ""
	u.email = ""
	u.bio = ""
	u.avatar = AvatarURLs{}
	return nil
}

func ValidateUsername(username string) error {
	if len(username) < 1 || len(username) > 39 {
		return ErrInvalidUsername
	}
	for _, ch := range username {
		if !(ch >= 'a' && ch <= 'z') && !(ch >= 'A' && ch <= 'Z') &&
			!(ch >= '0' && ch <= '9') && ch != '_' && ch != '-' {
			return ErrInvalidUsername
		}
	}
	return nil
}

func ValidateEmail(email string) error {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || strings.ContainsRune(email[at+1:], '@') {
		return ErrInvalidEmail
	}
	return nil
}
