package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeClass(t *testing.T) {
	assert.Equal(t, 1024, sizeClass(1))
	assert.Equal(t, 1024, sizeClass(1024))
	assert.Equal(t, 2048, sizeClass(1025))
	assert.Equal(t, 3072, sizeClass(2049))
}

func TestGetFloat32_Length(t *testing.T) {
	buf := GetFloat32(100)
	assert.Len(t, buf, 100)
	assert.GreaterOrEqual(t, cap(buf), 1024)
	PutFloat32(buf)
}

func TestGetFloat32_LargeBuffer(t *testing.T) {
	// A 640x640 RGB tensor is the common case
	n := 3 * 640 * 640
	buf := GetFloat32(n)
	assert.Len(t, buf, n)
	PutFloat32(buf)
}

func TestPutFloat32_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() { PutFloat32(nil) })
}

func TestGetFloat32_Reuse(t *testing.T) {
	buf := GetFloat32(512)
	for i := range buf {
		buf[i] = 1.5
	}
	PutFloat32(buf)

	// A subsequent buffer of the same class is usable regardless of whether
	// the pool handed the old one back.
	again := GetFloat32(512)
	assert.Len(t, again, 512)
	PutFloat32(again)
}
