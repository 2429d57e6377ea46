package commands

import (
	"time"

	"github.com/wolfeidau/orgkeys/internal/client"
)

type Globals struct {
	Debug   bool
	Version string
}

// ServerFlags are shared by every command that talks to the API.
type ServerFlags struct {
	Server  string        `help:"Server URL" default:"http://localhost:8080" env:"ORGKEYS_SERVER"`
	Timeout time.Duration `help:"Request timeout" default:"30s"`
}

func (s ServerFlags) client(globals *Globals) *client.Client {
	return client.New(client.Config{
		ServerURL: s.Server,
		Timeout:   s.Timeout,
		Debug:     globals.Debug,
	})
}
