package application

import (
	"time"

	"github.com/imagelens/backend/internal/ports"
)

type Service struct {
	cfg        Config
	users      ports.UserRepository
	analyses   ports.AnalysisRepository
	challenges ports.ChallengeStore
	throttle   ports.RequestThrottle
	hasher     ports.PasswordHasher
	signer     ports.TokenSigner
	files      ports.FileStore
	detectors  map[string]ports.LabelDetector
	translator ports.Translator
	nowFn      func() time.Time
}

type Dependencies struct {
	Config     Config
	Users      ports.UserRepository
	Analyses   ports.AnalysisRepository
	Challenges ports.ChallengeStore
	Throttle   ports.RequestThrottle
	Hasher     ports.PasswordHasher
	Signer     ports.TokenSigner
	Files      ports.FileStore
	Detectors  []ports.LabelDetector
	Translator ports.Translator
}

func NewService(deps Dependencies) *Service {
	detectors := make(map[string]ports.LabelDetector, len(deps.Detectors))
	for _, d := range deps.Detectors {
		detectors[d.Provider()] = d
	}
	return &Service{
		cfg:        deps.Config,
		users:      deps.Users,
		analyses:   deps.Analyses,
		challenges: deps.Challenges,
		throttle:   deps.Throttle,
		hasher:     deps.Hasher,
		signer:     deps.Signer,
		files:      deps.Files,
		detectors:  detectors,
		translator: deps.Translator,
		nowFn:      func() time.Time { return time.Now().UTC() },
	}
}
