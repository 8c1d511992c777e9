package lineage

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MrEthical07/goAuthGate/internal/shardmap"
	"github.com/MrEthical07/goAuthGate/jwt"
	"github.com/MrEthical07/goAuthGate/revocation"
)

// DefaultHistorySize is the number of refresh tokens retained per family.
const DefaultHistorySize = 10

// State is the lifecycle state of a family.
type State uint8

const (
	StateAbsent State = iota
	StateActive
	StateCompromised
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCompromised:
		return "compromised"
	default:
		return "absent"
	}
}

// Minter is the token-issuing surface the tracker needs. *jwt.Manager
// satisfies it.
type Minter interface {
	CreateAccess(subject string, roles []string, extra map[string]any) (jwt.Issued, error)
	CreateRefresh(subject, familyID string) (jwt.Issued, error)
	ParseAs(token string, want jwt.TokenType) (*jwt.Claims, error)
	ParseClaims(token string) (*jwt.Claims, error)
	RefreshTTL() time.Duration
}

// Family is a snapshot of one lineage.
type Family struct {
	ID        string
	Principal string
	Roles     []string
	// History holds at most HistorySize tokens, oldest first. The last
	// element is always Current.
	History          []string
	Current          string
	CurrentExpiresAt time.Time
	CreatedAt        time.Time
	LastUsedAt       time.Time
	Compromised      bool
}

// State reports the state represented by the snapshot.
func (f Family) State() State {
	if f.Compromised {
		return StateCompromised
	}
	if f.ID == "" {
		return StateAbsent
	}
	return StateActive
}

func (f Family) clone() Family {
	f.Roles = slices.Clone(f.Roles)
	f.History = slices.Clone(f.History)
	return f
}

func (f Family) contains(token string) bool {
	return slices.Contains(f.History, token)
}

// Rotation is the result of a successful refresh.
type Rotation struct {
	Access  jwt.Issued
	Refresh jwt.Issued
	Family  Family
}

// Config tunes a Tracker.
type Config struct {
	HistorySize int
	Now         func() time.Time
	Logger      *zap.Logger
}

// Tracker owns every refresh family. Safe for concurrent use.
type Tracker struct {
	families    *shardmap.Map[Family]
	minter      Minter
	revoker     revocation.Store
	historySize int
	now         func() time.Time
	logger      *zap.Logger
}

// NewTracker returns a Tracker that mints with minter and retires tokens in
// revoker.
func NewTracker(minter Minter, revoker revocation.Store, cfg Config) (*Tracker, error) {
	if minter == nil || revoker == nil {
		return nil, errors.New("lineage tracker requires a minter and a revocation store")
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Tracker{
		families:    shardmap.New[Family](shardmap.DefaultShards),
		minter:      minter,
		revoker:     revoker,
		historySize: cfg.HistorySize,
		now:         cfg.Now,
		logger:      cfg.Logger,
	}, nil
}

// Issue opens a new family for principal and returns its first refresh
// token.
func (t *Tracker) Issue(_ context.Context, principal string, roles []string) (jwt.Issued, error) {
	familyID := uuid.NewString()
	refresh, err := t.minter.CreateRefresh(principal, familyID)
	if err != nil {
		return jwt.Issued{}, err
	}

	now := t.now()
	t.families.Set(familyID, Family{
		ID:               familyID,
		Principal:        principal,
		Roles:            slices.Clone(roles),
		History:          []string{refresh.Token},
		Current:          refresh.Token,
		CurrentExpiresAt: refresh.ExpiresAt,
		CreatedAt:        now,
		LastUsedAt:       now,
	})
	return refresh, nil
}

// Rotate exchanges a current refresh token for a new access and refresh
// pair.
//
// A denylisted token is rejected with ErrTokenRevoked unless it is still in
// its family's history: replaying a superseded token returns a *TheftError
// wrapping ErrTheftDetected, and a signed token unknown to its family
// returns one wrapping ErrInvalidTokenForRefresh. In both cases the family
// is gone and every token it held is revoked.
func (t *Tracker) Rotate(ctx context.Context, presented string) (Rotation, error) {
	claims, err := t.minter.ParseAs(presented, jwt.TypeRefresh)
	if err != nil {
		return Rotation{}, ErrInvalidRefreshToken
	}

	revoked, err := t.revoker.IsRevoked(ctx, presented)
	if err != nil {
		return Rotation{}, err
	}

	if claims.FamilyID == "" {
		if revoked {
			return Rotation{}, ErrTokenRevoked
		}
		return t.adoptLegacy(ctx, presented, claims)
	}

	var (
		rotation  Rotation
		outcome   error
		purged    Family
		mintError error
		found     bool
	)
	now := t.now()
	t.families.Compute(claims.FamilyID, func(fam Family, ok bool) (Family, bool) {
		found = ok
		if !ok {
			return fam, false
		}

		switch {
		case presented == fam.Current && !revoked:
		case presented != fam.Current && fam.contains(presented):
			outcome = ErrTheftDetected
		case revoked:
			outcome = ErrTokenRevoked
			return fam, true
		default:
			outcome = ErrInvalidTokenForRefresh
		}
		if outcome != nil {
			purged = fam.clone()
			purged.Compromised = true
			return fam, false
		}

		access, err := t.minter.CreateAccess(fam.Principal, fam.Roles, nil)
		if err != nil {
			mintError = err
			return fam, true
		}
		refresh, err := t.minter.CreateRefresh(fam.Principal, fam.ID)
		if err != nil {
			mintError = err
			return fam, true
		}

		next := fam.clone()
		next.History = append(next.History, refresh.Token)
		if over := len(next.History) - t.historySize; over > 0 {
			next.History = slices.Delete(next.History, 0, over)
		}
		next.Current = refresh.Token
		next.CurrentExpiresAt = refresh.ExpiresAt
		next.LastUsedAt = now

		rotation = Rotation{Access: access, Refresh: refresh, Family: next.clone()}
		return next, true
	})

	switch {
	case !found && revoked:
		return Rotation{}, ErrTokenRevoked
	case !found:
		return Rotation{}, ErrFamilyNotFound
	case mintError != nil:
		return Rotation{}, mintError
	case errors.Is(outcome, ErrTokenRevoked):
		return Rotation{}, outcome
	case outcome != nil:
		return Rotation{}, t.purge(ctx, purged, presented, outcome)
	}

	var oldExpiry time.Time
	if claims.ExpiresAt != nil {
		oldExpiry = claims.ExpiresAt.Time
	}
	if err := t.revoker.Revoke(ctx, presented, oldExpiry); err != nil {
		// The family no longer accepts the old token without this entry.
		t.logger.Warn("revoke rotated refresh token failed",
			zap.String("family_id", claims.FamilyID),
			zap.Error(err),
		)
	}
	return rotation, nil
}

func (t *Tracker) adoptLegacy(ctx context.Context, presented string, claims *jwt.Claims) (Rotation, error) {
	access, err := t.minter.CreateAccess(claims.Subject, claims.Roles, nil)
	if err != nil {
		return Rotation{}, err
	}
	refresh, err := t.Issue(ctx, claims.Subject, claims.Roles)
	if err != nil {
		return Rotation{}, err
	}
	if claims.ExpiresAt != nil {
		if err := t.revoker.Revoke(ctx, presented, claims.ExpiresAt.Time); err != nil {
			t.logger.Warn("revoke legacy refresh token failed", zap.Error(err))
		}
	}
	fam, _ := t.Lookup(refresh.Claims.FamilyID)
	return Rotation{Access: access, Refresh: refresh, Family: fam}, nil
}

func (t *Tracker) purge(ctx context.Context, fam Family, presented string, cause error) error {
	tokens := fam.History
	if !fam.contains(presented) {
		tokens = append(tokens, presented)
	}
	expiresAt := t.now().Add(t.minter.RefreshTTL())
	theft := &TheftError{Family: fam, Revoked: len(tokens), cause: cause}

	if err := t.revoker.RevokeMany(ctx, tokens, expiresAt); err != nil {
		t.logger.Error("revoke compromised family failed",
			zap.String("family_id", fam.ID),
			zap.Error(err),
		)
		theft.Revoked = 0
	}
	t.logger.Warn("refresh family compromised",
		zap.String("family_id", fam.ID),
		zap.String("principal", fam.Principal),
		zap.Int("revoked", theft.Revoked),
		zap.NamedError("reason", cause),
	)
	return theft
}

// Invalidate ends the family that token belongs to. Expired tokens are
// accepted as long as their signature verifies. When no family is found
// only the presented token is revoked and the returned Family is zero.
func (t *Tracker) Invalidate(ctx context.Context, token string) (Family, error) {
	claims, err := t.minter.ParseClaims(token)
	if err != nil {
		return Family{}, ErrInvalidRefreshToken
	}

	var fam Family
	found := false
	if claims.FamilyID != "" {
		t.families.Compute(claims.FamilyID, func(cur Family, ok bool) (Family, bool) {
			fam, found = cur.clone(), ok
			return cur, false
		})
	}

	if !found {
		var expiresAt time.Time
		if claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		return Family{}, t.revoker.Revoke(ctx, token, expiresAt)
	}

	tokens := fam.History
	if !fam.contains(token) {
		tokens = append(tokens, token)
	}
	if err := t.revoker.RevokeMany(ctx, tokens, t.now().Add(t.minter.RefreshTTL())); err != nil {
		return fam, err
	}
	return fam, nil
}

// Lookup returns a snapshot of the family.
func (t *Tracker) Lookup(familyID string) (Family, bool) {
	fam, ok := t.families.Get(familyID)
	if !ok {
		return Family{}, false
	}
	return fam.clone(), true
}

// State returns the state of familyID. Purged families report StateAbsent.
func (t *Tracker) State(familyID string) State {
	fam, ok := t.families.Get(familyID)
	if !ok {
		return StateAbsent
	}
	return fam.State()
}

// Sweep evicts families whose current token has expired at now.
func (t *Tracker) Sweep(now time.Time) int {
	return t.families.DeleteIf(func(_ string, fam Family) bool {
		return !now.Before(fam.CurrentExpiresAt)
	})
}

// Len returns the number of active families.
func (t *Tracker) Len() int {
	return t.families.Len()
}
