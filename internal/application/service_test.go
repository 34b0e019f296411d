package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/imagelens/backend/internal/adapters/cache"
	"github.com/imagelens/backend/internal/adapters/security"
	"github.com/imagelens/backend/internal/domain"
	"github.com/imagelens/backend/internal/ports"
)

type fakeAnalysisRepo struct {
	mu   sync.Mutex
	rows []domain.Analysis
}

func (r *fakeAnalysisRepo) Create(_ context.Context, analysis domain.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, analysis)
	return nil
}

func (r *fakeAnalysisRepo) ListByUser(_ context.Context, userID int64, offset, limit int) ([]domain.Analysis, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []domain.Analysis
	for _, row := range r.rows {
		if row.UserID == userID {
			matched = append(matched, row)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].AnalyzedAt.After(matched[j].AnalyzedAt)
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *fakeAnalysisRepo) GetByID(_ context.Context, analysisID string, userID int64) (domain.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == analysisID && row.UserID == userID {
			return row, nil
		}
	}
	return domain.Analysis{}, domain.ErrNotFound
}

func (r *fakeAnalysisRepo) Delete(_ context.Context, analysisID string, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, row := range r.rows {
		if row.ID == analysisID && row.UserID == userID {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

type fakeUserRepo struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]domain.User
	analyses *fakeAnalysisRepo
}

func newFakeUserRepo(analyses *fakeAnalysisRepo) *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]domain.User), analyses: analyses}
}

func (r *fakeUserRepo) Create(_ context.Context, params ports.CreateUserParams) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == params.Username {
			return domain.User{}, domain.ErrDuplicateUsername
		}
	}
	r.nextID++
	user := domain.User{
		ID:           r.nextID,
		Username:     params.Username,
		PasswordHash: params.PasswordHash,
		IsActive:     true,
		CreatedAt:    params.CreatedAt,
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, userID int64) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) TouchLastLogin(_ context.Context, userID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.LastLoginAt = &at
	r.users[userID] = u
	return nil
}

func (r *fakeUserRepo) Deactivate(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.IsActive = false
	r.users[userID] = u
	return nil
}

func (r *fakeUserRepo) CountAnalyses(ctx context.Context, userID int64) (int64, error) {
	_, total, err := r.analyses.ListByUser(ctx, userID, 0, 1)
	return total, err
}

type fakeFileStore struct {
	mu    sync.Mutex
	next  int
	files map[string][]byte
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{files: make(map[string][]byte)}
}

func (s *fakeFileStore) Save(userID int64, _ string, content io.Reader) (string, error) {
	raw, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	path := strconv.FormatInt(userID, 10) + "/file-" + strconv.Itoa(s.next)
	s.files[path] = raw
	return path, nil
}

func (s *fakeFileStore) Open(path string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.files[path]
	if !ok {
		return nil, errors.New("file not found")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (s *fakeFileStore) Remove(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, path)
	return nil
}

func (s *fakeFileStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

type fakeDetector struct {
	name   string
	labels []domain.Label
	err    error
}

func (d *fakeDetector) Provider() string { return d.name }

func (d *fakeDetector) DetectLabels(context.Context, []byte) ([]domain.Label, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.labels, nil
}

type fakeTranslator struct{}

func (fakeTranslator) Translate(_ context.Context, text, _ string) (string, error) {
	return "es:" + text, nil
}

type fixture struct {
	service  *Service
	users    *fakeUserRepo
	analyses *fakeAnalysisRepo
	files    *fakeFileStore
	detector *fakeDetector
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()

	cfg := Config{
		TokenTTL:               24 * time.Hour,
		RegisterLimitPerMinute: 100,
		LoginLimitPerMinute:    100,
		AnalyzeLimitPerMinute:  100,
		MaxUploadBytes:         1 << 20,
		AllowedExtensions:      []string{"jpg", "jpeg", "png"},
		DefaultProvider:        "google",
		TargetLang:             "es",
	}
	if mutate != nil {
		mutate(&cfg)
	}

	signer, err := security.NewEphemeralJWTSigner("test-key-1")
	if err != nil {
		t.Fatalf("create signer: %v", err)
	}

	analyses := &fakeAnalysisRepo{}
	users := newFakeUserRepo(analyses)
	files := newFakeFileStore()
	detector := &fakeDetector{
		name: "google",
		labels: []domain.Label{
			{Name: "dog", Confidence: 0.97},
			{Name: "mammal", Confidence: 0.91},
			{Name: "pet", Confidence: 0.84},
		},
	}

	svc := NewService(Dependencies{
		Config:     cfg,
		Users:      users,
		Analyses:   analyses,
		Challenges: cache.NewMemoryChallengeStore(),
		Throttle:   cache.NewMemoryThrottle(),
		Hasher:     security.NewBcryptHasher(bcrypt.MinCost),
		Signer:     signer,
		Files:      files,
		Detectors:  []ports.LabelDetector{detector},
		Translator: fakeTranslator{},
	})

	return &fixture{
		service:  svc,
		users:    users,
		analyses: analyses,
		files:    files,
		detector: detector,
	}
}

// solvedCaptcha issues a challenge and computes its answer from the question.
func (f *fixture) solvedCaptcha(t *testing.T) (string, int) {
	t.Helper()
	res, err := f.service.IssueChallenge(context.Background())
	if err != nil {
		t.Fatalf("issue challenge: %v", err)
	}
	var a, b int
	var op string
	if _, err := fmt.Sscanf(res.Challenge.Question, "What is %d %s %d?", &a, &op, &b); err != nil {
		t.Fatalf("unparseable question %q: %v", res.Challenge.Question, err)
	}
	switch op {
	case "+":
		return res.Challenge.Token, a + b
	case "-":
		return res.Challenge.Token, a - b
	case "*":
		return res.Challenge.Token, a * b
	}
	t.Fatalf("unknown operator %q", op)
	return "", 0
}

func (f *fixture) register(t *testing.T, username, password string) RegisterResponse {
	t.Helper()
	token, answer := f.solvedCaptcha(t)
	res, err := f.service.Register(context.Background(), RegisterRequest{
		Username:      username,
		Password:      password,
		CaptchaToken:  token,
		CaptchaAnswer: &answer,
		ClientIP:      "127.0.0.1",
	})
	if err != nil {
		t.Fatalf("register %q failed: %v", username, err)
	}
	return res
}

func TestRegisterLoginVerifyFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	registerRes := f.register(t, "steeven", "Secure.Pass1")
	if registerRes.User.ID == 0 {
		t.Fatalf("register returned empty user id")
	}
	if registerRes.User.Username != "steeven" {
		t.Fatalf("unexpected username %q", registerRes.User.Username)
	}
	if registerRes.User.LastLoginAt != nil {
		t.Fatalf("fresh account should have no last login")
	}

	loginRes, err := f.service.Login(ctx, LoginRequest{
		Username: "steeven",
		Password: "Secure.Pass1",
		ClientIP: "127.0.0.1",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if loginRes.Token == "" {
		t.Fatalf("login token should not be empty")
	}
	if loginRes.User.LastLoginAt == nil {
		t.Fatalf("login should record last login time")
	}

	user, err := f.service.VerifySession(ctx, loginRes.Token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if user.ID != registerRes.User.ID {
		t.Fatalf("verify resolved wrong user: %d", user.ID)
	}

	stored, err := f.users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if stored.PasswordHash == "Secure.Pass1" {
		t.Fatalf("password must not be stored in plaintext")
	}
}

func TestRegisterRequiresCaptcha(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	answer := 5

	cases := []RegisterRequest{
		{Username: "steeven", Password: "Secure.Pass1", ClientIP: "127.0.0.1"},
		{Username: "steeven", Password: "Secure.Pass1", CaptchaToken: "tok", ClientIP: "127.0.0.1"},
		{Username: "steeven", Password: "Secure.Pass1", CaptchaAnswer: &answer, ClientIP: "127.0.0.1"},
	}
	for i, req := range cases {
		if _, err := f.service.Register(ctx, req); !errors.Is(err, domain.ErrCaptchaMissing) {
			t.Fatalf("case %d: expected ErrCaptchaMissing, got %v", i, err)
		}
	}
}

func TestRegisterCaptchaOutcomes(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	token, answer := f.solvedCaptcha(t)
	wrong := answer + 1
	if _, err := f.service.Register(ctx, RegisterRequest{
		Username:      "steeven",
		Password:      "Secure.Pass1",
		CaptchaToken:  token,
		CaptchaAnswer: &wrong,
		ClientIP:      "127.0.0.1",
	}); !errors.Is(err, domain.ErrCaptchaWrongAnswer) {
		t.Fatalf("expected ErrCaptchaWrongAnswer, got %v", err)
	}

	// Unknown token reads the same as an expired one.
	if _, err := f.service.Register(ctx, RegisterRequest{
		Username:      "steeven",
		Password:      "Secure.Pass1",
		CaptchaToken:  "no-such-token",
		CaptchaAnswer: &answer,
		ClientIP:      "127.0.0.1",
	}); !errors.Is(err, domain.ErrCaptchaNotFound) {
		t.Fatalf("expected ErrCaptchaNotFound, got %v", err)
	}

	// A consumed token cannot be replayed even with the right answer.
	token, answer = f.solvedCaptcha(t)
	if _, err := f.service.Register(ctx, RegisterRequest{
		Username:      "steeven",
		Password:      "Secure.Pass1",
		CaptchaToken:  token,
		CaptchaAnswer: &answer,
		ClientIP:      "127.0.0.1",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := f.service.Register(ctx, RegisterRequest{
		Username:      "another_user",
		Password:      "Secure.Pass1",
		CaptchaToken:  token,
		CaptchaAnswer: &answer,
		ClientIP:      "127.0.0.1",
	}); !errors.Is(err, domain.ErrCaptchaNotFound) {
		t.Fatalf("expected ErrCaptchaNotFound on replay, got %v", err)
	}
}

func TestRegisterValidationOrdering(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	token, answer := f.solvedCaptcha(t)
	if _, err := f.service.Register(ctx, RegisterRequest{
		Username:      "ab",
		Password:      "Secure.Pass1",
		CaptchaToken:  token,
		CaptchaAnswer: &answer,
		ClientIP:      "127.0.0.1",
	}); !errors.Is(err, domain.ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}

	token, answer = f.solvedCaptcha(t)
	if _, err := f.service.Register(ctx, RegisterRequest{
		Username:      "steeven",
		Password:      "weakpass",
		CaptchaToken:  token,
		CaptchaAnswer: &answer,
		ClientIP:      "127.0.0.1",
	}); !errors.Is(err, domain.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	f.register(t, "steeven", "Secure.Pass1")

	token, answer = f.solvedCaptcha(t)
	if _, err := f.service.Register(ctx, RegisterRequest{
		Username:      "steeven",
		Password:      "Secure.Pass1",
		CaptchaToken:  token,
		CaptchaAnswer: &answer,
		ClientIP:      "127.0.0.1",
	}); !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestLoginUnifiedFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	f.register(t, "steeven", "Secure.Pass1")

	_, unknownErr := f.service.Login(ctx, LoginRequest{
		Username: "nobody",
		Password: "Secure.Pass1",
		ClientIP: "127.0.0.1",
	})
	_, wrongErr := f.service.Login(ctx, LoginRequest{
		Username: "steeven",
		Password: "Wrong.Pass1",
		ClientIP: "127.0.0.1",
	})

	if !errors.Is(unknownErr, domain.ErrAuthenticationFailed) {
		t.Fatalf("unknown user: expected ErrAuthenticationFailed, got %v", unknownErr)
	}
	if !errors.Is(wrongErr, domain.ErrAuthenticationFailed) {
		t.Fatalf("wrong password: expected ErrAuthenticationFailed, got %v", wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("failure messages must be indistinguishable: %q vs %q", unknownErr, wrongErr)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	registerRes := f.register(t, "steeven", "Secure.Pass1")

	loginRes, err := f.service.Login(ctx, LoginRequest{
		Username: "steeven",
		Password: "Secure.Pass1",
		ClientIP: "127.0.0.1",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := f.users.Deactivate(ctx, registerRes.User.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	if _, err := f.service.Login(ctx, LoginRequest{
		Username: "steeven",
		Password: "Secure.Pass1",
		ClientIP: "127.0.0.1",
	}); !errors.Is(err, domain.ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive on login, got %v", err)
	}

	// An already-issued token stops working too.
	if _, err := f.service.VerifySession(ctx, loginRes.Token); !errors.Is(err, domain.ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive on verify, got %v", err)
	}
}

func TestRegisterRateLimit(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(cfg *Config) {
		cfg.RegisterLimitPerMinute = 2
	})
	ctx := context.Background()

	f.register(t, "user_one", "Secure.Pass1")
	f.register(t, "user_two", "Secure.Pass1")

	token, answer := f.solvedCaptcha(t)
	if _, err := f.service.Register(ctx, RegisterRequest{
		Username:      "user_three",
		Password:      "Secure.Pass1",
		CaptchaToken:  token,
		CaptchaAnswer: &answer,
		ClientIP:      "127.0.0.1",
	}); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// A different client keeps its own budget.
	token, answer = f.solvedCaptcha(t)
	if _, err := f.service.Register(ctx, RegisterRequest{
		Username:      "user_three",
		Password:      "Secure.Pass1",
		CaptchaToken:  token,
		CaptchaAnswer: &answer,
		ClientIP:      "10.0.0.9",
	}); err != nil {
		t.Fatalf("register from other client failed: %v", err)
	}
}

func TestPasswordHashesAreSalted(t *testing.T) {
	t.Parallel()

	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	first, err := hasher.Hash("Secure.Pass1")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	second, err := hasher.Hash("Secure.Pass1")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if first == second {
		t.Fatalf("hashes of the same password must differ")
	}
	if err := hasher.Compare(first, "Secure.Pass1"); err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	if err := hasher.Compare(first, "Wrong.Pass1"); err == nil {
		t.Fatalf("compare should reject a wrong password")
	}
}

func TestAnalyzeLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	registerRes := f.register(t, "steeven", "Secure.Pass1")
	userID := registerRes.User.ID

	res, err := f.service.Analyze(ctx, AnalyzeRequest{
		UserID:   userID,
		FileName: "dog.jpg",
		Content:  []byte("fake image bytes"),
		Provider: "google",
	})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if res.ID == "" {
		t.Fatalf("analysis id should not be empty")
	}
	if len(res.Labels) != 3 || res.Labels[0].Name != "dog" {
		t.Fatalf("unexpected labels: %+v", res.Labels)
	}
	if len(res.TranslatedLabels) != 3 {
		t.Fatalf("expected translated labels, got %+v", res.TranslatedLabels)
	}
	if res.TranslatedLabels[0].Name != "Es:dog" || res.TranslatedLabels[0].Confidence != 97 {
		t.Fatalf("unexpected translation: %+v", res.TranslatedLabels[0])
	}
	if res.Interpretation == "" {
		t.Fatalf("interpretation should not be empty")
	}

	history, err := f.service.History(ctx, userID, 1, 10)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if history.Total != 1 || len(history.Analyses) != 1 {
		t.Fatalf("expected one analysis, got %+v", history)
	}
	if history.Analyses[0].ID != res.ID {
		t.Fatalf("history returned wrong analysis")
	}

	// Another user cannot see or delete it.
	other := f.register(t, "someone_else", "Secure.Pass1")
	if _, err := f.service.GetAnalysis(ctx, res.ID, other.User.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign analysis, got %v", err)
	}
	if err := f.service.DeleteAnalysis(ctx, res.ID, other.User.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign delete, got %v", err)
	}

	reader, fileName, err := f.service.OpenImage(ctx, res.ID, userID)
	if err != nil {
		t.Fatalf("open image failed: %v", err)
	}
	raw, _ := io.ReadAll(reader)
	_ = reader.Close()
	if fileName != "dog.jpg" || string(raw) != "fake image bytes" {
		t.Fatalf("unexpected image payload: %q %q", fileName, raw)
	}

	if err := f.service.DeleteAnalysis(ctx, res.ID, userID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if f.files.count() != 0 {
		t.Fatalf("stored file should be removed with the analysis")
	}
	if _, err := f.service.GetAnalysis(ctx, res.ID, userID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestHistoryPagination(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	registerRes := f.register(t, "steeven", "Secure.Pass1")
	userID := registerRes.User.ID

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := f.analyses.Create(ctx, domain.Analysis{
			ID:         fmt.Sprintf("a-%d", i),
			UserID:     userID,
			FileName:   fmt.Sprintf("img-%d.jpg", i),
			FilePath:   fmt.Sprintf("%d/img-%d", userID, i),
			Provider:   "google",
			Labels:     []domain.Label{{Name: "cat", Confidence: 0.9}},
			AnalyzedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("seed analysis: %v", err)
		}
	}

	page, err := f.service.History(ctx, userID, 1, 2)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if page.Total != 5 || len(page.Analyses) != 2 {
		t.Fatalf("unexpected first page: %+v", page)
	}
	if page.Analyses[0].ID != "a-4" || page.Analyses[1].ID != "a-3" {
		t.Fatalf("history must be newest-first, got %s, %s", page.Analyses[0].ID, page.Analyses[1].ID)
	}

	page, err = f.service.History(ctx, userID, 3, 2)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(page.Analyses) != 1 || page.Analyses[0].ID != "a-0" {
		t.Fatalf("unexpected last page: %+v", page)
	}
}

func TestAnalyzeUploadValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(cfg *Config) {
		cfg.MaxUploadBytes = 16
	})
	ctx := context.Background()

	if _, err := f.service.Analyze(ctx, AnalyzeRequest{
		UserID:   1,
		FileName: "notes.txt",
		Content:  []byte("hello"),
	}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for extension, got %v", err)
	}

	if _, err := f.service.Analyze(ctx, AnalyzeRequest{
		UserID:   1,
		FileName: "big.jpg",
		Content:  bytes.Repeat([]byte("x"), 17),
	}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for size, got %v", err)
	}

	if _, err := f.service.Analyze(ctx, AnalyzeRequest{
		UserID:   1,
		FileName: "img.jpg",
		Content:  []byte("ok"),
		Provider: "azure",
	}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for provider, got %v", err)
	}

	if f.files.count() != 0 {
		t.Fatalf("rejected uploads must not be stored")
	}
}

func TestAnalyzeProviderFailureRemovesFile(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	f.detector.err = errors.New("provider down")

	if _, err := f.service.Analyze(ctx, AnalyzeRequest{
		UserID:   1,
		FileName: "img.jpg",
		Content:  []byte("payload"),
	}); err == nil {
		t.Fatalf("expected provider failure to surface")
	}
	if f.files.count() != 0 {
		t.Fatalf("upload must be removed when the provider fails")
	}

	_, total, err := f.analyses.ListByUser(ctx, 1, 0, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("no analysis record should be persisted on failure")
	}
}

func TestAnalyzeRateLimit(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(cfg *Config) {
		cfg.AnalyzeLimitPerMinute = 1
	})
	ctx := context.Background()

	req := AnalyzeRequest{
		UserID:   1,
		FileName: "img.jpg",
		Content:  []byte("payload"),
		ClientIP: "10.0.0.1",
	}
	if _, err := f.service.Analyze(ctx, req); err != nil {
		t.Fatalf("first analyze failed: %v", err)
	}
	if _, err := f.service.Analyze(ctx, req); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if f.files.count() != 1 {
		t.Fatalf("throttled request must not store a file")
	}
}

func TestServiceClockAdvances(t *testing.T) {
	t.Parallel()

	svc := NewService(Dependencies{})
	first := svc.nowFn()
	time.Sleep(20 * time.Millisecond)
	second := svc.nowFn()
	if !second.After(first) {
		t.Fatalf("clock must advance between calls: first=%v second=%v", first, second)
	}
}
