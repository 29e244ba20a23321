package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/event-assistant/pkg/logger"
)

func TestConfigOptions(t *testing.T) {
	base, err := Config{URL: "nats://localhost:4222"}.options(logger.Nop())
	require.NoError(t, err)

	tests := []struct {
		name  string
		cfg   Config
		extra int
	}{
		{"token", Config{Token: "s3cret"}, 1},
		{"ca only", Config{CAFile: "ca.pem"}, 1},
		{"mutual tls", Config{CAFile: "ca.pem", CertFile: "c.pem", KeyFile: "k.pem"}, 2},
		{"mutual tls with token", Config{CAFile: "ca.pem", CertFile: "c.pem", KeyFile: "k.pem", Token: "t"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := tt.cfg.options(logger.Nop())
			require.NoError(t, err)
			assert.Len(t, opts, len(base)+tt.extra)
		})
	}
}

func TestConfigOptions_HalfClientCert(t *testing.T) {
	_, err := Config{CertFile: "c.pem"}.options(logger.Nop())
	assert.Error(t, err)

	_, err = Config{KeyFile: "k.pem"}.options(logger.Nop())
	assert.Error(t, err)
}

func TestClosedClient(t *testing.T) {
	var c Client
	assert.False(t, c.IsConnected())
	c.Close()
}
