package postgres

import (
	"github.com/tvgelderen/dbbridge/pkg/adapter"
)

func init() {
	// Register PostgreSQL adapter with the global registry
	adapter.Register(NewAdapter())
}
