package domain

import (
	"errors"
	"strings"
)

type Platform uint8

const (
	PlatformAndroid Platform = iota
	PlatformIOS
)

var ErrUnknownPlatform = errors.New("unknown platform")

func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(s) {
	case "android":
		return PlatformAndroid, nil
	case "ios":
		return PlatformIOS, nil
	}
	return 0, ErrUnknownPlatform
}

func (p Platform) String() string {
	switch p {
	case PlatformAndroid:
		return "android"
	case PlatformIOS:
		return "ios"
	}
	return "unknown"
}

type TokenStatus uint8

const (
	TokenStatusActive TokenStatus = iota
	TokenStatusInactive
)

// DeviceToken is one registered device of a client. The provider-issued
// token string is the document id, so an active token is unique across
// the whole registry.
type DeviceToken struct {
	Id         string            `bson:"_id"`
	ClientId   string            `bson:"clientId"`
	Platform   Platform          `bson:"platform"`
	Status     TokenStatus       `bson:"status"`
	DeviceInfo map[string]string `bson:"deviceInfo,omitempty"`
	Created    int64             `bson:"created"`
	Updated    int64             `bson:"updated"`
	LastUsed   int64             `bson:"lastUsed"`
}

const (
	tokenMinLen = 140
	tokenMarker = ":APA91b"
)

var ErrTokenMalformed = errors.New("malformed device token")

// ValidateToken rejects token strings outside the provider grammar before
// they can be persisted. Truncated tokens are the usual cause of 404-style
// provider errors, so they never reach the registry.
func ValidateToken(token string) error {
	if len(token) < tokenMinLen {
		return ErrTokenMalformed
	}
	if !strings.Contains(token, tokenMarker) {
		return ErrTokenMalformed
	}
	return nil
}
