package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"theagentvikram/resumatch/internal/models"
	"theagentvikram/resumatch/internal/repositories"
	"theagentvikram/resumatch/internal/services"
)

// fakeResumes implements the read side of ResumeRepository the handlers use.
// Other methods panic through the nil embedded interface.
type fakeResumes struct {
	repositories.ResumeRepository

	mu         sync.Mutex
	resumes    map[uuid.UUID]*models.Resume
	skills     []string
	lastFilter models.ResumeFilter
}

func newFakeResumes(resumes ...*models.Resume) *fakeResumes {
	f := &fakeResumes{resumes: make(map[uuid.UUID]*models.Resume)}
	for _, r := range resumes {
		f.resumes[r.ID] = r
	}
	return f
}

func (f *fakeResumes) FindByID(ctx context.Context, id uuid.UUID) (*models.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.resumes[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, fmt.Errorf("resume %s: %w", id, repositories.ErrResumeNotFound)
}

func (f *fakeResumes) List(ctx context.Context, filter models.ResumeFilter) ([]models.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter

	out := []models.Resume{}
	for _, r := range f.resumes {
		if filter.OwnerID != nil && (r.OwnerID == nil || *r.OwnerID != *filter.OwnerID) {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeResumes) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReviewStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resumes[id]
	if !ok {
		return fmt.Errorf("resume %s: %w", id, repositories.ErrResumeNotFound)
	}
	r.Status = status
	return nil
}

func (f *fakeResumes) DistinctSkills(ctx context.Context) ([]string, error) {
	return f.skills, nil
}

// stubIngest records what it was asked to store. Filenames listed in fail are rejected.
type stubIngest struct {
	mu      sync.Mutex
	inputs  []services.IngestInput
	deleted []uuid.UUID
	fail    map[string]error
}

func (s *stubIngest) Ingest(ctx context.Context, in services.IngestInput) (*models.Resume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.fail[in.Filename]; ok {
		return nil, err
	}
	s.inputs = append(s.inputs, in)

	resume := &models.Resume{
		ID:               uuid.New(),
		OwnerID:          in.OwnerID,
		Filename:         in.Filename,
		Size:             int64(len(in.Data)),
		Status:           models.StatusPending,
		ProcessingStatus: models.ProcessingQueued,
		Skills:           pq.StringArray{},
	}
	if in.Metadata != nil {
		resume.Name = in.Metadata.Name
		resume.Experience = int(in.Metadata.Experience)
	}
	return resume, nil
}

func (s *stubIngest) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	return nil
}

type stubSearch struct {
	results []models.SearchResult
	err     error
	last    models.SearchRequest
}

func (s *stubSearch) Search(ctx context.Context, req models.SearchRequest, ownerID *uuid.UUID) ([]models.SearchResult, error) {
	s.last = req
	return s.results, s.err
}

type stubModelStatus struct{ status models.ModelStatus }

func (s stubModelStatus) Status(ctx context.Context) models.ModelStatus { return s.status }

type failingAnalyzer struct{ err error }

func (a failingAnalyzer) Name() string { return "failing" }

func (a failingAnalyzer) Analyze(ctx context.Context, text string) (*services.AnalysisResult, error) {
	return nil, a.err
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func (r *fakeUsers) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, user.Username) {
			return fmt.Errorf("%s: %w", user.Username, repositories.ErrUsernameTaken)
		}
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

type apiFixture struct {
	app     *fiber.App
	resumes *fakeResumes
	ingest  *stubIngest
	search  *stubSearch
	storage services.StorageService
	auth    services.AuthService
	routes  *Routes
}

type fixtureOption func(*apiFixture)

func withAnalyzer(a services.Analyzer) fixtureOption {
	return func(f *apiFixture) { f.routes.Analyze.analyzer = a }
}

func withAuthRequired() fixtureOption {
	return func(f *apiFixture) { f.routes.AuthRequired = true }
}

func withJWTSecret(secret string) fixtureOption {
	return func(f *apiFixture) {
		f.auth = services.NewAuthService(&fakeUsers{users: map[uuid.UUID]*models.User{}}, secret, 1, bcrypt.MinCost)
		f.routes.Auth = NewAuthHandler(f.auth)
		f.routes.Tokens = f.auth
	}
}

func newAPIFixture(t *testing.T, opts ...fixtureOption) *apiFixture {
	t.Helper()

	f := &apiFixture{
		resumes: newFakeResumes(),
		ingest:  &stubIngest{fail: map[string]error{}},
		search:  &stubSearch{results: []models.SearchResult{}},
		storage: services.NewStorageService(t.TempDir()),
		auth:    services.NewAuthService(&fakeUsers{users: map[uuid.UUID]*models.User{}}, "test-secret", 1, bcrypt.MinCost),
	}
	require.NoError(t, f.storage.EnsureReady(context.Background()))

	f.routes = &Routes{
		System: NewSystemHandler(false),
		Analyze: NewAnalyzeHandler(
			services.NewRegexAnalyzer(),
			services.NewTextExtractor(),
			stubModelStatus{status: models.ModelStatus{Status: "available", Message: "Using regex-based analysis (no LLM)", Mode: "regex"}},
			1<<20,
		),
		Upload:  NewUploadHandler(f.ingest, 1<<20),
		Resumes: NewResumeHandler(f.resumes, f.storage, f.ingest),
		Search:  NewSearchHandler(f.search, f.resumes),
		Auth:    NewAuthHandler(f.auth),
		Tokens:  f.auth,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.app = fiber.New()
	f.routes.Register(f.app)
	return f
}

// token registers a user with the given role and returns a bearer header value.
func (f *apiFixture) token(t *testing.T, username string, role models.Role) (string, uuid.UUID) {
	t.Helper()
	resp, err := f.auth.Register(context.Background(), models.RegisterRequest{
		Username: username,
		Password: "password123",
		Role:     role,
	})
	require.NoError(t, err)
	return "Bearer " + resp.Token, resp.User.ID
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	token       string
	accept      string
}

func (f *apiFixture) do(t *testing.T, r request) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(r.method, r.path, r.body)
	if r.contentType != "" {
		req.Header.Set(fiber.HeaderContentType, r.contentType)
	}
	if r.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, r.token)
	}
	if r.accept != "" {
		req.Header.Set(fiber.HeaderAccept, r.accept)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func jsonRequest(method, path string, payload any) request {
	data, _ := json.Marshal(payload)
	return request{method: method, path: path, body: bytes.NewReader(data), contentType: fiber.MIMEApplicationJSON}
}

type formFile struct {
	field    string
	filename string
	content  string
}

func multipartRequest(t *testing.T, path string, files []formFile, fields map[string]string) request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, w.WriteField(name, value))
	}
	for _, file := range files {
		part, err := w.CreateFormFile(file.field, file.filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(file.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return request{method: fiber.MethodPost, path: path, body: &buf, contentType: w.FormDataContentType()}
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	return decode[map[string]any](t, body)["error"].(string)
}
