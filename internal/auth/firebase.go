package auth

import (
	"context"
	"fmt"

	fbauth "firebase.google.com/go/v4/auth"
)

// IDTokenVerifier is the slice of the Firebase Auth client used here.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier accepts Firebase ID tokens issued to the mobile apps.
type FirebaseVerifier struct {
	Client IDTokenVerifier
}

func (f *FirebaseVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	t, err := f.Client.VerifyIDToken(ctx, token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return Identity{UID: t.UID}, nil
}
