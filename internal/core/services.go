package core

import (
	"github.com/rs/zerolog"

	"github.com/edvin/apihub/internal/token"
)

type Services struct {
	Team        *TeamService
	AccessToken *AccessTokenService
}

func NewServices(db DB, codec *token.Codec, logger zerolog.Logger) *Services {
	teams := NewTeamService(db)
	return &Services{
		Team:        teams,
		AccessToken: NewAccessTokenService(db, codec, teams, teams, logger),
	}
}
