package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRedisInfo(t *testing.T) {
	info := "# Server\r\nredis_version:7.2.4\r\nrun_id:abcdef0123456789\r\n\r\n# Clients\r\nconnected_clients:4\r\n"

	parsed := parseRedisInfo(info)
	assert.Equal(t, "7.2.4", parsed["redis_version"])
	assert.Equal(t, "abcdef0123456789", parsed["run_id"])
	assert.Equal(t, "4", parsed["connected_clients"])
	assert.NotContains(t, parsed, "# Server")
}
