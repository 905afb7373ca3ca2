// Package store holds the per-profile application state: cart, wishlist
// and session. Each store owns one key of the profile's persistent store
// and mirrors its state there after every change.
package store

import (
	"context"
	"log/slog"

	"github.com/markofilipovic2762/eshop-cms/internal/storage"
	"github.com/markofilipovic2762/eshop-cms/pkg/logger"
)

// Deps are the collaborators shared by every bundle.
type Deps struct {
	// Storage is the unscoped store; bundles scope it by profile.
	Storage storage.Store
	Auth    Authenticator
	Logger  *slog.Logger
}

// Stores is the application-scoped state of one browser profile.
type Stores struct {
	ProfileID string
	Cart      *Cart
	Wishlist  *Wishlist
	Session   *Session
}

// New builds an uninitialised bundle for profileID.
func New(deps Deps, profileID string) *Stores {
	scoped := storage.Scope(deps.Storage, profileID)
	l := deps.Logger.With(slog.String("profile_id", profileID))

	return &Stores{
		ProfileID: profileID,
		Cart:      newCart(profileID, scoped, l),
		Wishlist:  newWishlist(profileID, scoped, l),
		Session:   newSession(profileID, deps.Auth, scoped, l),
	}
}

// Init hydrates every store from persistent storage.
func (s *Stores) Init(ctx context.Context) {
	ctx = logger.WithProfileID(ctx, s.ProfileID)
	s.Session.Init(ctx)
	s.Cart.Init(ctx)
	s.Wishlist.Init(ctx)
}

// Subscribe registers l on all three stores.
func (s *Stores) Subscribe(l Listener) func() {
	unsubs := []func(){
		s.Cart.Subscribe(l),
		s.Wishlist.Subscribe(l),
		s.Session.Subscribe(l),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Dispose drops all subscribers and rejects further mutations. Persisted
// state is left untouched.
func (s *Stores) Dispose() {
	s.Cart.dispose()
	s.Wishlist.dispose()
	s.Session.dispose()
}
