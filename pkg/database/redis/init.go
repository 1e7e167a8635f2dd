package redis

import (
	"github.com/tvgelderen/dbbridge/pkg/adapter"
)

func init() {
	// Register Redis adapter with the global registry
	adapter.Register(NewAdapter())
}
