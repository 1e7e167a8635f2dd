package mongodb

import (
	"github.com/tvgelderen/dbbridge/pkg/adapter"
)

func init() {
	// Register MongoDB adapter with the global registry
	adapter.Register(NewAdapter())
}
