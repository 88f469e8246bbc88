package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsNormalize(t *testing.T) {
	o := Options{URL: "http://127.0.0.1:8787/banner", OutputPath: "/tmp/banner.png"}
	require.NoError(t, o.normalize())
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, DefaultTimeout, o.Timeout)

	o = Options{URL: "u", OutputPath: "p", Width: 640, Height: 200, Timeout: time.Second}
	require.NoError(t, o.normalize())
	assert.Equal(t, 640, o.Width)
	assert.Equal(t, 200, o.Height)
	assert.Equal(t, time.Second, o.Timeout)
}

func TestCaptureBannerPNG_RequiresTargets(t *testing.T) {
	err := CaptureBannerPNG(context.Background(), Options{OutputPath: "/tmp/x.png"})
	assert.ErrorContains(t, err, "URL is required")

	err = CaptureBannerPNG(context.Background(), Options{URL: "http://127.0.0.1/banner"})
	assert.ErrorContains(t, err, "OutputPath is required")
}
