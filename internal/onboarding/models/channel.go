package models

import (
	dErrors "konto/pkg/domain-errors"
)

// Channel identifies a contact medium whose control the applicant proves via
// one-time code. Email and phone are verified independently.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

// channelFlags maps each channel to accessors for the verification flag it
// toggles on the aggregate. A lookup table keeps markChannelVerified free of
// parallel per-channel branches.
var channelFlags = map[Channel]struct {
	get func(*Application) bool
	set func(*Application)
}{
	ChannelEmail: {
		get: func(a *Application) bool { return a.EmailVerified },
		set: func(a *Application) { a.EmailVerified = true },
	},
	ChannelSMS: {
		get: func(a *Application) bool { return a.PhoneVerified },
		set: func(a *Application) { a.PhoneVerified = true },
	},
}

// ParseChannel constructs a Channel from external input.
//
// Usage: call from handlers/adapters when parsing requests; direct casting
// bypasses validation.
func ParseChannel(s string) (Channel, error) {
	c := Channel(s)
	if _, ok := channelFlags[c]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid channel: "+s)
	}
	return c, nil
}

func (c Channel) String() string {
	return string(c)
}
