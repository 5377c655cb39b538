package nia

import (
	"testing"

	"github.com/google/gousb"
	"github.com/stretchr/testify/assert"
)

func TestOpenWithoutLibusb(t *testing.T) {
	saved := newContext
	defer func() { newContext = saved }()
	newContext = func() *gousb.Context { panic(gousb.ErrorOther) }

	var n *NIA
	var err error
	assert.NotPanics(t, func() { n, err = Open(DefaultVendorID, DefaultProductID, DefaultEndpoint) })
	assert.Nil(t, n)
	assert.True(t, IsUnavailable(err), "Open error %v should be ErrDeviceUnavailable", err)
	assert.Contains(t, err.Error(), "libusb init")
	assert.False(t, IsTimeout(err))
}
