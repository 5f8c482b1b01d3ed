package pressroom

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/eringen/pressroom/blog"
)

const (
	sessionName    = "pressroom_session"
	sessionActorID = "actor_id"
)

// ErrInvalidCredentials is returned when a login attempt fails.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator resolves login credentials to an actor id.
type Authenticator interface {
	Authenticate(ctx context.Context, user, password string) (actorID string, err error)
}

// PasswordAuthenticator checks passwords against bcrypt hashes keyed by
// author id.
type PasswordAuthenticator struct {
	hashes map[string][]byte
	dummy  []byte
}

// NewPasswordAuthenticator returns an authenticator for authors, a map of
// author id to bcrypt hash.
func NewPasswordAuthenticator(authors map[string]string) *PasswordAuthenticator {
	a := &PasswordAuthenticator{hashes: make(map[string][]byte, len(authors))}
	for id, hash := range authors {
		a.hashes[id] = []byte(hash)
	}
	// Compared for unknown users so a miss costs the same as a wrong password.
	a.dummy, _ = bcrypt.GenerateFromPassword([]byte("pressroom"), bcrypt.DefaultCost)
	return a
}

func (a *PasswordAuthenticator) Authenticate(_ context.Context, user, password string) (string, error) {
	hash, ok := a.hashes[user]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(a.dummy, []byte(password))
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return user, nil
}

// HashPassword returns the bcrypt hash of password for use in
// PRESSROOM_AUTHORS.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// ParseAuthors parses "id:hash,id:hash". Hashes contain no commas.
func ParseAuthors(s string) (map[string]string, error) {
	authors := make(map[string]string)
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, hash, ok := strings.Cut(entry, ":")
		id, hash = strings.TrimSpace(id), strings.TrimSpace(hash)
		if !ok || id == "" || hash == "" {
			return nil, fmt.Errorf("author entry %q: want id:hash", entry)
		}
		if _, dup := authors[id]; dup {
			return nil, fmt.Errorf("author %q listed twice", id)
		}
		authors[id] = hash
	}
	if len(authors) == 0 {
		return nil, fmt.Errorf("no authors")
	}
	return authors, nil
}

// ActorID returns the authenticated author of the request, or "".
func ActorID(c echo.Context) string {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return ""
	}
	id, _ := sess.Values[sessionActorID].(string)
	return id
}

func setActorSession(c echo.Context, actorID string) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values[sessionActorID] = actorID
	return sess.Save(c.Request(), c.Response())
}

func clearActorSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	delete(sess.Values, sessionActorID)
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// requireActor gates the admin surface. The login page stays reachable.
func requireActor(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Path() == "/admin/login/" {
			return next(c)
		}
		if ActorID(c) == "" {
			return blog.ErrUnauthorized
		}
		return next(c)
	}
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(c echo.Context) bool {
	r := c.Request()
	return strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) ||
		r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}
