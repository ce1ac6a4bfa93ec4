// Package auth extracts wallet identity from the ID tokens issued by the
// authentication provider. Token signatures are verified upstream by the
// issuing service; this package only reads claims.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/square/go-jose.v2/jwt"

	checkout "github.com/lumenlabs/checkout-go"
)

// walletClaims are the wallet-provisioning claims embedded in ID tokens.
type walletClaims struct {
	*jwt.Claims
	Email            string `json:"email,omitempty"`
	EthereumAddress  string `json:"zkevm_eth_address,omitempty"`
	UserAdminAddress string `json:"zkevm_user_admin_address,omitempty"`
}

// User is the wallet identity carried by an ID token.
type User struct {
	// Subject is the stable user identifier issued by the auth provider.
	Subject string

	// Email is the user's email address, when the token carries one.
	Email string

	// WalletAddress is the counterfactual smart wallet address, empty until
	// the wallet has been provisioned.
	WalletAddress string

	// AdminAddress is the wallet's user-admin key address.
	AdminAddress string

	// Expiry is when the token stops being valid.
	Expiry time.Time
}

// Registered reports whether the user has a provisioned smart wallet.
func (u User) Registered() bool {
	return u.WalletAddress != ""
}

// UserFromIDToken decodes the claims of a serialized ID token.
func UserFromIDToken(idToken string) (User, error) {
	token, err := jwt.ParseSigned(idToken)
	if err != nil {
		return User{}, fmt.Errorf("%w: failed to parse id token: %v", checkout.ErrUnauthorized, err)
	}

	var claims walletClaims
	if err := token.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return User{}, fmt.Errorf("%w: failed to read id token claims: %v", checkout.ErrUnauthorized, err)
	}

	if claims.Claims == nil || claims.Subject == "" {
		return User{}, fmt.Errorf("%w: id token carries no subject", checkout.ErrUnauthorized)
	}

	user := User{
		Subject:       claims.Subject,
		Email:         claims.Email,
		WalletAddress: claims.EthereumAddress,
		AdminAddress:  claims.UserAdminAddress,
	}
	if claims.Expiry != nil {
		user.Expiry = claims.Expiry.Time()
	}

	return user, nil
}

// SubjectFromIDToken decodes only the subject claim of a serialized ID token.
func SubjectFromIDToken(idToken string) (string, error) {
	user, err := UserFromIDToken(idToken)
	if err != nil {
		return "", err
	}
	return user.Subject, nil
}

// TokenPair holds the credentials issued by the auth provider for one login.
type TokenPair struct {
	AccessToken string
	IDToken     string
}

// Session supplies the current credentials to relayer and guardian clients
// and exposes the identity of the logged-in user.
type Session interface {
	// Tokens returns the current credentials, refreshing them if needed.
	Tokens(ctx context.Context) (TokenPair, error)
}

// StaticSession is a Session over fixed, pre-issued credentials.
type StaticSession TokenPair

// Tokens implements Session.
func (s StaticSession) Tokens(context.Context) (TokenPair, error) {
	if strings.TrimSpace(s.AccessToken) == "" {
		return TokenPair{}, checkout.ErrUnauthorized
	}
	return TokenPair(s), nil
}

// AccessTokenSource adapts a Session to the bearer-token interfaces the
// relayer and guardian clients consume.
func AccessTokenSource(session Session) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		tokens, err := session.Tokens(ctx)
		if err != nil {
			return "", err
		}
		return tokens.AccessToken, nil
	}
}
