package mysql

import (
	"github.com/tvgelderen/dbbridge/pkg/adapter"
)

func init() {
	// Register MySQL adapter with the global registry
	adapter.Register(NewAdapter())
}
