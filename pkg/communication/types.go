package communication

import "github.com/dmitrymomot/apimgmt/pkg/directory"

// Channel is the medium a communication is delivered through.
type Channel string

const ChannelMail Channel = "MAIL"

func (c Channel) String() string {
	return string(c)
}

// RecipientFilter selects users by the role they hold within a scope.
type RecipientFilter struct {
	RoleScope  directory.RoleScope
	RoleValues []string
}

// Communication is a message written by an administrator for a set of users.
type Communication struct {
	Recipient *RecipientFilter
	Channel   Channel
	Title     string
	Text      string
	Params    map[string]string
}

func (c *Communication) validate() error {
	if c == nil || c.Recipient == nil {
		return ErrInvalidRecipientFilter
	}
	if !c.Recipient.RoleScope.Valid() {
		return ErrInvalidRecipientFilter
	}
	if len(c.Recipient.RoleValues) == 0 {
		return ErrInvalidRecipientFilter
	}
	return nil
}
