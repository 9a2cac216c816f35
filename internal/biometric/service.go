package biometric

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/facetophone/security-service/internal/config"
	"github.com/facetophone/security-service/internal/domain"
	"github.com/facetophone/security-service/internal/pkg/logger"
	"github.com/facetophone/security-service/internal/storage"
)

// VerifyResult is the outcome of a verification attempt.
type VerifyResult struct {
	Similarity float64 `json:"similarity"`
	Matched    bool    `json:"matched"`
	Threshold  float64 `json:"threshold"`
}

// Service handles biometric enrollment and verification. Templates are
// persisted through the encrypted store; one logical template per
// (user, modality), overwritten on re-enrollment.
type Service struct {
	store   storage.Store
	matcher *Matcher
	cfg     config.BiometricConfig
	rng     RandomSource
	log     *logger.Logger
}

// NewService creates a biometric service.
func NewService(store storage.Store, matcher *Matcher, cfg config.BiometricConfig, rng RandomSource, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		matcher: matcher,
		cfg:     cfg,
		rng:     rng,
		log:     log.Named("biometric"),
	}
}

// Enroll stores a template for the user's modality, overwriting any
// previous one. The vector comes from the capture collaborator; feature
// extraction itself is out of scope here.
func (s *Service) Enroll(ctx context.Context, userID string, modality domain.BiometricModality, vector []float64) (*domain.BiometricTemplate, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "must not be empty")
	}
	if len(vector) == 0 {
		return nil, domain.NewValidationError("template", "feature vector must not be empty")
	}
	if modality != domain.ModalityFace && modality != domain.ModalityVoice {
		return nil, domain.NewValidationError("type", "unknown biometric modality")
	}

	template := &domain.BiometricTemplate{
		ID:     uuid.New(),
		UserID: userID,
		Type:   modality,
		// Copy so later caller mutations cannot reach the stored template.
		Template:   append([]float64(nil), vector...),
		Confidence: 0.90 + s.rng.Float64()*0.09,
		CreatedAt:  time.Now(),
	}

	key := domain.TemplateKey(userID, modality)
	indexes := map[string]string{
		storage.IndexUserID: userID,
		storage.IndexType:   string(modality),
	}
	if err := s.store.Put(ctx, storage.CollectionTemplates, key, template, indexes); err != nil {
		return nil, fmt.Errorf("store template: %w", err)
	}

	s.log.TemplateEnrolled(userID, string(modality), template.Confidence)
	return template, nil
}

// Verify compares a captured vector against the stored template and
// applies the modality's match threshold. A missing template returns
// domain.ErrNotFound; the caller decides the fallback (enrollment
// required), so it is not treated as a failure here.
func (s *Service) Verify(ctx context.Context, userID string, modality domain.BiometricModality, vector []float64) (*VerifyResult, error) {
	var template domain.BiometricTemplate
	err := s.store.Get(ctx, storage.CollectionTemplates, domain.TemplateKey(userID, modality), &template)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("no %s template for user %s: %w", modality, userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load template: %w", err)
	}

	similarity := s.matcher.Similarity(template.Template, vector)
	threshold := s.threshold(modality)

	result := &VerifyResult{
		Similarity: similarity,
		Matched:    similarity >= threshold,
		Threshold:  threshold,
	}
	s.log.VerificationCompleted(userID, string(modality), similarity, result.Matched)
	return result, nil
}

func (s *Service) threshold(modality domain.BiometricModality) float64 {
	if modality == domain.ModalityVoice {
		return s.cfg.VoiceMatchThreshold
	}
	return s.cfg.FaceMatchThreshold
}
