// Package devbackend is an in-memory implementation of the BikeRoutes API
// used for local development and end-to-end tests of the client. It mirrors
// the production service: bcrypt-hashed accounts, HS256 access tokens,
// rotating refresh tokens, and owner-scoped route and marker CRUD with
// server-computed distances.
//
// All state lives in process memory and is lost on restart.
package devbackend

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/GadCoder/BikeRoutes/internal/domain"
)

// ErrMalformed marks input that parsed but is structurally unusable, such as
// a LineString with one vertex or an inverted bounding box. It wraps
// domain.ErrValidation; handlers answer it with 400 rather than 422.
var ErrMalformed = fmt.Errorf("%w: malformed input", domain.ErrValidation)

// Error is a rejected request. Kind is one of the domain sentinels (or
// ErrMalformed) and Detail is the message returned to the caller.
type Error struct {
	Kind   error
	Detail string
}

func (e *Error) Error() string { return e.Kind.Error() + ": " + e.Detail }

func (e *Error) Unwrap() error { return e.Kind }

func reject(kind error, detail string) error {
	return &Error{Kind: kind, Detail: detail}
}

// Detail returns the caller-facing message carried by err, or "".
func Detail(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return ""
}

// timeLayout renders timestamps in UTC with fixed millisecond precision so
// they sort correctly as strings.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Options configures a Backend.
type Options struct {
	// JWTSecret signs access tokens. Required.
	JWTSecret string
	// AccessTokenTTL defaults to 15 minutes.
	AccessTokenTTL time.Duration
	// RefreshTokenTTL defaults to 30 days.
	RefreshTokenTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost. Tests use bcrypt.MinCost.
	BcryptCost int
	// Now defaults to time.Now.
	Now func() time.Time
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Backend holds every account, token, route, and marker in memory.
// It is safe for concurrent use.
type Backend struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	cost       int
	now        func() time.Time
	logger     *slog.Logger

	mu      sync.RWMutex
	users   map[string]*user
	byEmail map[string]string
	tokens  map[string]*refreshToken // keyed by sha256 of the plain token
	routes  map[string]*route
	seq     int
}

// New returns an empty Backend. It fails when no JWT secret is configured.
func New(opts Options) (*Backend, error) {
	if opts.JWTSecret == "" {
		return nil, errors.New("devbackend.New: JWT secret is required")
	}
	if opts.AccessTokenTTL <= 0 {
		opts.AccessTokenTTL = 15 * time.Minute
	}
	if opts.RefreshTokenTTL <= 0 {
		opts.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Backend{
		secret:     []byte(opts.JWTSecret),
		accessTTL:  opts.AccessTokenTTL,
		refreshTTL: opts.RefreshTokenTTL,
		cost:       opts.BcryptCost,
		now:        opts.Now,
		logger:     opts.Logger,
		users:      make(map[string]*user),
		byEmail:    make(map[string]string),
		tokens:     make(map[string]*refreshToken),
		routes:     make(map[string]*route),
	}, nil
}

func (b *Backend) timestamp() time.Time {
	return b.now().UTC()
}

// nextSeq returns a monotonically increasing insertion counter used to break
// ordering ties. Callers hold b.mu.
func (b *Backend) nextSeq() int {
	b.seq++
	return b.seq
}

// randomToken returns n random bytes encoded as unpadded base64url.
func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
