package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("company-1", "company-1/docs/file.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	grant, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "company-1", grant.Owner)
	require.Equal(t, "company-1/docs/file.pdf", grant.Key)
	require.WithinDuration(t, expiresAt, grant.ExpiresAt, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return now }

	token, _, err := signer.Generate("job-1", "reports/file.csv")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = signer.Parse(token, false)
	require.ErrorIs(t, err, ErrTokenExpired)

	grant, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "job-1", grant.Owner)
	require.Equal(t, "reports/file.csv", grant.Key)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("company-1", "company-1/a.pdf")
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, err = other.Parse(token, false)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = signer.Parse("company-2"+token[len("company-1"):], false)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = signer.Parse("garbage", false)
	require.ErrorIs(t, err, ErrTokenInvalid)
}
