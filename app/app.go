package app

import (
	"github.com/dkessler/homepage/config"
	"github.com/dkessler/homepage/contact"
	"github.com/dkessler/homepage/content"
)

type App struct {
	*content.Store
	Sessions *contact.Sessions
	config.Config
}
