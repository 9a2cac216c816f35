package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplateKey(t *testing.T) {
	assert.Equal(t, "u1:face", TemplateKey("u1", ModalityFace))
	assert.Equal(t, "u1:voice", TemplateKey("u1", ModalityVoice))
}

func TestDeviceFingerprintIsOrderIndependent(t *testing.T) {
	a := DeviceFingerprint(map[string]string{"platform": "android", "screen": "1080x2400", "tz": "Africa/Lagos"})
	b := DeviceFingerprint(map[string]string{"tz": "Africa/Lagos", "platform": "android", "screen": "1080x2400"})

	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestDeviceFingerprintChangesWithAttributes(t *testing.T) {
	a := DeviceFingerprint(map[string]string{"platform": "android"})
	b := DeviceFingerprint(map[string]string{"platform": "ios"})

	assert.NotEqual(t, a, b)
}
