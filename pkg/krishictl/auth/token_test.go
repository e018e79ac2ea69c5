package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
	"github.com/digitalkrishi/officer-console/pkg/krishictl/config"
)

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "krishictl", "tokens.json")
	store := &FileStore{Path: path}

	_, ok, err := store.Get("kerala")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, store.Delete("kerala"))

	require.NoError(t, store.Save("kerala", StoredToken{AccessToken: "abc", EmployeeID: "EMP001"}))
	require.NoError(t, store.Save("staging", StoredToken{AccessToken: "def"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	token, ok, err := store.Get("kerala")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", token.AccessToken)

	require.NoError(t, store.Delete("kerala"))
	_, ok, err = store.Get("kerala")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, _ = store.Get("staging")
	assert.True(t, ok)
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, _, err := (&FileStore{Path: path}).Get("x")
	assert.ErrorContains(t, err, "failed to parse token cache")
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	store := KeyringStore{}

	_, ok, err := store.Get("kerala")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save("kerala", StoredToken{AccessToken: "abc", Name: "Anitha"}))
	token, ok, err := store.Get("kerala")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Anitha", token.Name)

	require.NoError(t, store.Delete("kerala"))
	require.NoError(t, store.Delete("kerala"))
}

func TestNewStore(t *testing.T) {
	s, err := NewStore("", "/tmp/x")
	require.NoError(t, err)
	assert.IsType(t, KeyringStore{}, s)

	s, err = NewStore(config.TokenStorageFile, "/tmp/x")
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = NewStore("vault", "")
	assert.Error(t, err)
}

func TestStoredTokenExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, StoredToken{}.Expired(now))
	assert.False(t, StoredToken{Expiry: now.Add(time.Minute)}.Expired(now))
	assert.True(t, StoredToken{Expiry: now}.Expired(now))
}

type fakeAuthenticator struct {
	resp *v1.LoginResponse
	err  error
}

func (f fakeAuthenticator) Login(context.Context, string, string) (*v1.LoginResponse, error) {
	return f.resp, f.err
}

func TestLogin(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test"))
	require.NoError(t, err)

	token, err := Login(context.Background(), fakeAuthenticator{resp: &v1.LoginResponse{
		Token:   signed,
		Officer: v1.Officer{Name: "Anitha Menon"},
	}}, " EMP001 ", "secret")
	require.NoError(t, err)
	assert.Equal(t, signed, token.AccessToken)
	assert.Equal(t, "EMP001", token.EmployeeID)
	assert.Equal(t, "Anitha Menon", token.Name)
	assert.True(t, exp.Equal(token.Expiry))

	token, err = Login(context.Background(), fakeAuthenticator{resp: &v1.LoginResponse{AccessToken: "opaque"}}, "EMP002", "x")
	require.NoError(t, err)
	assert.Equal(t, "opaque", token.AccessToken)
	assert.True(t, token.Expiry.IsZero())

	_, err = Login(context.Background(), fakeAuthenticator{err: errors.New("boom")}, "EMP001", "x")
	assert.Error(t, err)
}

func TestReadSecret(t *testing.T) {
	s, err := ReadSecret(strings.NewReader("hunter2\r\nignored"))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", s)

	s, err = ReadSecret(strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", s)

	_, err = ReadSecret(strings.NewReader("\n"))
	assert.Error(t, err)
}
