package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/gympass/internal/adapters/postgres"
	"github.com/samirrijal/gympass/internal/adapters/valkey"
	"github.com/samirrijal/gympass/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	RegisterUser    *usecases.RegisterUser
	Authenticate    *usecases.Authenticate
	UserProfile     *usecases.GetUserProfile
	CreateGym       *usecases.CreateGym
	SearchGyms      *usecases.SearchGyms
	NearbyGyms      *usecases.FetchNearbyGyms
	CreateCheckIn   *usecases.CreateCheckIn
	ValidateCheckIn *usecases.ValidateCheckIn
	CheckInHistory  *usecases.FetchCheckInHistory
	UserMetrics     *usecases.GetUserMetrics
	Tokens          *TokenIssuer
	NATS            *nats.Conn
	DB              *postgres.DB
	Cache           *valkey.Cache
}
