package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BiometricModality distinguishes the enrolled trait.
type BiometricModality string

const (
	ModalityFace  BiometricModality = "face"
	ModalityVoice BiometricModality = "voice"
)

// BiometricTemplate is the stored feature representation of an enrolled
// face or voice sample. One logical template per (user, modality);
// re-enrollment overwrites.
type BiometricTemplate struct {
	ID         uuid.UUID         `json:"id"`
	UserID     string            `json:"user_id"`
	Type       BiometricModality `json:"type"`
	Template   []float64         `json:"template"`
	Confidence float64           `json:"confidence"`
	CreatedAt  time.Time         `json:"created_at"`
}

// TemplateKey returns the storage key for a user's template of a modality.
func TemplateKey(userID string, modality BiometricModality) string {
	return userID + ":" + string(modality)
}

// DeviceFingerprint derives a stable identifier from client environment
// attributes. A weak device-identity signal, not proof of device identity.
func DeviceFingerprint(attributes map[string]string) string {
	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(attributes[k])
		b.WriteByte(';')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}
