package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"schoolorbit/backend/internal/audit"
	"schoolorbit/backend/internal/authz"
	"schoolorbit/backend/internal/feature"
	"schoolorbit/backend/internal/feature/catalog"
	featurerepo "schoolorbit/backend/internal/feature/repository"
	"schoolorbit/backend/internal/identity"
	identitydomain "schoolorbit/backend/internal/identity/domain"
	identityrepo "schoolorbit/backend/internal/identity/repository"
	"schoolorbit/backend/internal/pii"
	"schoolorbit/backend/internal/policy"
	"schoolorbit/backend/internal/security"
	"schoolorbit/backend/internal/session"
	sessiondomain "schoolorbit/backend/internal/session/domain"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

const (
	testSecret     = "0123456789abcdef0123456789abcdef"
	testSalt       = "test_salt"
	testNationalID = "1234567890123"
	testPassword   = "s3cret"
)

// In-memory session repository.
type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*sessiondomain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*sessiondomain.Session)}
}

func (m *memSessionRepo) GetByID(ctx context.Context, id string) (*sessiondomain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memSessionRepo) ListActive(ctx context.Context) ([]*sessiondomain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*sessiondomain.Session
	now := time.Now()
	for _, s := range m.sessions {
		if s.Active(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSessionRepo) Create(ctx context.Context, s *sessiondomain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memSessionRepo) RotateHash(ctx context.Context, id, oldHash, newHash string, rotatedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.RevokedAt != nil || s.RefreshHash != oldHash {
		return false, nil
	}
	s.RefreshHash = newHash
	s.RotatedAt = &rotatedAt
	return true, nil
}

func (m *memSessionRepo) Revoke(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok && s.RevokedAt == nil {
		now := time.Now()
		s.RevokedAt = &now
	}
	return nil
}

func (m *memSessionRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, s := range m.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &now
		}
	}
	return nil
}

func (m *memSessionRepo) DeleteExpired(ctx context.Context, retention time.Duration) (int64, error) {
	return 0, nil
}

// In-memory feature repository.
type memFeatureRepo struct {
	mu      sync.Mutex
	toggles map[string]featurerepo.ToggleRow
	states  map[string]featurerepo.StateRow
}

func newMemFeatureRepo() *memFeatureRepo {
	return &memFeatureRepo{
		toggles: make(map[string]featurerepo.ToggleRow),
		states:  make(map[string]featurerepo.StateRow),
	}
}

func (m *memFeatureRepo) ListToggles(ctx context.Context) ([]featurerepo.ToggleRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]featurerepo.ToggleRow, 0, len(m.toggles))
	for _, row := range m.toggles {
		out = append(out, row)
	}
	return out, nil
}

func (m *memFeatureRepo) ListStates(ctx context.Context) ([]featurerepo.StateRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]featurerepo.StateRow, 0, len(m.states))
	for _, row := range m.states {
		out = append(out, row)
	}
	return out, nil
}

func (m *memFeatureRepo) UpsertToggle(ctx context.Context, row featurerepo.ToggleRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toggles[row.Code] = row
	return nil
}

func (m *memFeatureRepo) UpsertState(ctx context.Context, row featurerepo.StateRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[row.FeatureCode+"/"+row.StateCode] = row
	return nil
}

// In-memory user repository and grant source.
type memUserRepo struct {
	mu        sync.Mutex
	byIdent   map[string]*identitydomain.User
	byID      map[string]*identitydomain.User
	envelopes map[string]string
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		byIdent:   make(map[string]*identitydomain.User),
		byID:      make(map[string]*identitydomain.User),
		envelopes: make(map[string]string),
	}
}

func (m *memUserRepo) FindByIdentifier(ctx context.Context, actor identitydomain.ActorType, identifier string) (*identitydomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byIdent[string(actor)+"/"+identifier], nil
}

func (m *memUserRepo) GetByID(ctx context.Context, id string) (*identitydomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id], nil
}

func (m *memUserRepo) GetNationalIDEnvelope(ctx context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.envelopes[id], nil
}

type memGrantSource struct {
	mu     sync.Mutex
	grants map[string]identityrepo.Grants
}

func (m *memGrantSource) GrantsFor(ctx context.Context, userID string) (identityrepo.Grants, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.grants[userID], nil
}

type testEnv struct {
	server   *Server
	router   *gin.Engine
	users    *memUserRepo
	grants   *memGrantSource
	sessions *memSessionRepo
	features *memFeatureRepo
	cipher   *pii.Cipher
	userID   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newMemUserRepo()
	grants := &memGrantSource{grants: make(map[string]identityrepo.Grants)}
	sessions := newMemSessionRepo()
	features := newMemFeatureRepo()

	hasher := security.NewHasher(4)
	hash, err := hasher.Hash([]byte(testPassword))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	userID := uuid.New().String()
	u := &identitydomain.User{
		ID:           userID,
		Email:        "somchai@example.ac.th",
		DisplayName:  "Somchai T.",
		PasswordHash: hash,
		Status:       identitydomain.UserStatusActive,
	}
	users.byIdent["personnel/"+pii.HashIdentifier(testNationalID, testSalt)] = u
	users.byID[userID] = u

	cipher, err := pii.NewCipher(nil, testSalt)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	envelope, err := cipher.Encrypt(testNationalID)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	users.envelopes[userID] = envelope

	registry, err := feature.NewRegistry(catalog.Definitions())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	runtime := feature.NewRuntime(registry, features)
	engine := policy.NewEngine(registry)
	facade := authz.NewFacade(engine, runtime)

	tokens := security.NewTokenProvider([]byte(testSecret), 15*time.Minute)
	store := session.NewStore(sessions, 14*24*time.Hour)
	svc := identity.NewService(users, grants, store, tokens, hasher, testSalt, audit.Nop{})

	server := NewServer(svc, tokens, facade, runtime, cipher, users, CookieWriter{}, audit.Nop{})
	return &testEnv{
		server:   server,
		router:   server.Router(),
		users:    users,
		grants:   grants,
		sessions: sessions,
		features: features,
		cipher:   cipher,
		userID:   userID,
	}
}

func (e *testEnv) grant(perms ...string) {
	e.grants.mu.Lock()
	defer e.grants.mu.Unlock()
	e.grants.grants[e.userID] = identityrepo.Grants{Roles: []string{"teacher"}, Perms: perms}
}

// loginAs performs a real login and returns the issued cookies.
func (e *testEnv) loginAs(t *testing.T) []*http.Cookie {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"actorType": "personnel",
		"id":        testNationalID,
		"password":  testPassword,
	})
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	return parseCookies(w)
}

func parseCookies(w *httptest.ResponseRecorder) []*http.Cookie {
	res := http.Response{Header: w.Header()}
	return res.Cookies()
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies []*http.Cookie, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, "GET", "/healthz", nil, nil, nil)
	if w.Code != 200 {
		t.Errorf("status = %d", w.Code)
	}
}

func TestLogin_SetsCookies(t *testing.T) {
	e := newTestEnv(t)
	e.grant("grade:read")
	cookies := e.loginAs(t)

	at := cookieByName(cookies, "at")
	rt := cookieByName(cookies, "rt")
	csrf := cookieByName(cookies, "csrf")
	if at == nil || !at.HttpOnly || at.Path != "/" {
		t.Errorf("at cookie = %+v", at)
	}
	if rt == nil || !rt.HttpOnly || rt.Path != "/auth" {
		t.Errorf("rt cookie = %+v", rt)
	}
	if csrf == nil || csrf.HttpOnly {
		t.Errorf("csrf cookie = %+v", csrf)
	}
	if !strings.Contains(rt.Value, ".") {
		t.Error("refresh credential missing embedded session id")
	}
}

func TestLogin_BadRequests(t *testing.T) {
	e := newTestEnv(t)
	cases := []map[string]string{
		{"actorType": "", "id": testNationalID, "password": testPassword},
		{"actorType": "personnel", "id": "", "password": testPassword},
		{"actorType": "personnel", "id": testNationalID, "password": ""},
		{"actorType": "alien", "id": testNationalID, "password": testPassword},
	}
	for i, body := range cases {
		w := e.do(t, "POST", "/auth/login", body, nil, nil)
		if w.Code != 400 {
			t.Errorf("case %d: status = %d, want 400", i, w.Code)
		}
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, "POST", "/auth/login", map[string]string{
		"actorType": "personnel", "id": testNationalID, "password": "wrong",
	}, nil, nil)
	if w.Code != 401 {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRefresh_RotatesCredential(t *testing.T) {
	e := newTestEnv(t)
	cookies := e.loginAs(t)
	rt := cookieByName(cookies, "rt")

	w := e.do(t, "POST", "/auth/refresh", nil, []*http.Cookie{rt}, nil)
	if w.Code != 204 {
		t.Fatalf("refresh status = %d, body %s", w.Code, w.Body.String())
	}
	newRT := cookieByName(parseCookies(w), "rt")
	if newRT == nil || newRT.Value == rt.Value {
		t.Error("refresh did not rotate the credential")
	}

	// Replaying the old credential is reuse: 401 and every session dies.
	w = e.do(t, "POST", "/auth/refresh", nil, []*http.Cookie{rt}, nil)
	if w.Code != 401 {
		t.Errorf("replay status = %d, want 401", w.Code)
	}
	w = e.do(t, "POST", "/auth/refresh", nil, []*http.Cookie{newRT}, nil)
	if w.Code != 401 {
		t.Errorf("rotated credential after reuse: status = %d, want 401", w.Code)
	}
}

func TestRefresh_MissingCookie(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, "POST", "/auth/refresh", nil, nil, nil)
	if w.Code != 401 {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestLogout_RevokesSession(t *testing.T) {
	e := newTestEnv(t)
	cookies := e.loginAs(t)

	w := e.do(t, "POST", "/auth/logout", nil, cookies, nil)
	if w.Code != 204 {
		t.Fatalf("logout status = %d", w.Code)
	}
	for _, c := range parseCookies(w) {
		if c.MaxAge >= 0 {
			t.Errorf("cookie %s not cleared", c.Name)
		}
	}

	rt := cookieByName(cookies, "rt")
	w = e.do(t, "POST", "/auth/refresh", nil, []*http.Cookie{rt}, nil)
	if w.Code != 401 {
		t.Errorf("refresh after logout: status = %d, want 401", w.Code)
	}
}

func TestMe(t *testing.T) {
	e := newTestEnv(t)
	e.grant("grade:read")
	cookies := e.loginAs(t)

	w := e.do(t, "GET", "/auth/me", nil, cookies, nil)
	if w.Code != 200 {
		t.Fatalf("me status = %d", w.Code)
	}
	var out struct {
		Data struct {
			User struct {
				DisplayName string `json:"displayName"`
			} `json:"user"`
			Perms []string `json:"perms"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Data.User.DisplayName != "Somchai T." {
		t.Errorf("displayName = %q", out.Data.User.DisplayName)
	}
	if len(out.Data.Perms) != 1 || out.Data.Perms[0] != "grade:read" {
		t.Errorf("perms = %v", out.Data.Perms)
	}

	if w := e.do(t, "GET", "/auth/me", nil, nil, nil); w.Code != 401 {
		t.Errorf("unauthenticated me: status = %d, want 401", w.Code)
	}
}

func TestMenu_FiltersByPolicy(t *testing.T) {
	e := newTestEnv(t)
	e.grant("grade:read")
	cookies := e.loginAs(t)

	w := e.do(t, "GET", "/menu", nil, cookies, nil)
	if w.Code != 200 {
		t.Fatalf("menu status = %d", w.Code)
	}
	var out struct {
		Data []menuEntry `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	hrefs := make(map[string]bool)
	for _, entry := range out.Data {
		hrefs[entry.Href] = true
	}
	if !hrefs["/dashboard"] {
		t.Error("dashboard entry missing")
	}
	if !hrefs["/grades"] {
		t.Error("grades entry missing despite grade:read grant")
	}
	if hrefs["/attendance"] {
		t.Error("attendance entry present without attend:read grant")
	}
}

func TestAdminFeatures_RequiresManageAndCSRF(t *testing.T) {
	e := newTestEnv(t)
	e.grant("grade:read")
	cookies := e.loginAs(t)
	csrf := cookieByName(cookies, "csrf")

	w := e.do(t, "PATCH", "/api/admin/features/grades", map[string]bool{"enabled": false},
		cookies, map[string]string{"X-CSRF-Token": csrf.Value})
	if w.Code != 403 {
		t.Errorf("without feature:manage: status = %d, want 403", w.Code)
	}

	e.grant("feature:manage")
	cookies = e.loginAs(t)
	csrf = cookieByName(cookies, "csrf")

	// Missing CSRF header fails before authorization.
	w = e.do(t, "PATCH", "/api/admin/features/grades", map[string]bool{"enabled": false}, cookies, nil)
	if w.Code != 403 {
		t.Errorf("without csrf header: status = %d, want 403", w.Code)
	}

	w = e.do(t, "PATCH", "/api/admin/features/grades", map[string]bool{"enabled": false},
		cookies, map[string]string{"X-CSRF-Token": csrf.Value})
	if w.Code != 200 {
		t.Fatalf("toggle status = %d, body %s", w.Code, w.Body.String())
	}

	snapshot, err := e.server.runtime.LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if state, _ := snapshot.Lookup("grades"); state.Enabled {
		t.Error("toggle did not persist")
	}

	w = e.do(t, "PATCH", "/api/admin/features/unknown", map[string]bool{"enabled": true},
		cookies, map[string]string{"X-CSRF-Token": csrf.Value})
	if w.Code != 404 {
		t.Errorf("unknown feature: status = %d, want 404", w.Code)
	}
}

func TestAdminSetState(t *testing.T) {
	e := newTestEnv(t)
	e.grant("feature:manage")
	cookies := e.loginAs(t)
	csrf := cookieByName(cookies, "csrf")
	headers := map[string]string{"X-CSRF-Token": csrf.Value}

	w := e.do(t, "PUT", "/api/admin/features/grades/states/entry-open",
		map[string]bool{"value": true}, cookies, headers)
	if w.Code != 200 {
		t.Fatalf("set state status = %d, body %s", w.Code, w.Body.String())
	}

	snapshot, err := e.server.runtime.LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	state, _ := snapshot.Lookup("grades")
	if !state.States["entry-open"] {
		t.Error("state override did not persist")
	}

	w = e.do(t, "PUT", "/api/admin/features/grades/states/bogus",
		map[string]bool{"value": true}, cookies, headers)
	if w.Code != 404 {
		t.Errorf("undeclared state: status = %d, want 404", w.Code)
	}
}

func TestNationalID_MaskedAndFull(t *testing.T) {
	e := newTestEnv(t)
	e.grant("grade:read")
	cookies := e.loginAs(t)

	w := e.do(t, "GET", "/api/pii/national-id/"+e.userID, nil, cookies, nil)
	if w.Code != 200 {
		t.Fatalf("masked status = %d", w.Code)
	}
	var out struct {
		Data struct {
			Masked *string `json:"masked"`
			Full   *string `json:"full"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Data.Masked == nil || *out.Data.Masked != pii.Mask(testNationalID) {
		t.Errorf("masked = %v", out.Data.Masked)
	}
	if out.Data.Full != nil {
		t.Error("full returned without pii:view")
	}

	// full=1 without pii:view is forbidden.
	w = e.do(t, "GET", "/api/pii/national-id/"+e.userID+"?full=1", nil, cookies, nil)
	if w.Code != 403 {
		t.Errorf("full without grant: status = %d, want 403", w.Code)
	}

	e.grant("pii:view")
	cookies = e.loginAs(t)
	w = e.do(t, "GET", "/api/pii/national-id/"+e.userID+"?full=1", nil, cookies, nil)
	if w.Code != 200 {
		t.Fatalf("full status = %d, body %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Data.Full == nil || *out.Data.Full != testNationalID {
		t.Errorf("full = %v", out.Data.Full)
	}
}

func TestNationalID_NoneOnFile(t *testing.T) {
	e := newTestEnv(t)
	e.grant("grade:read")
	cookies := e.loginAs(t)

	w := e.do(t, "GET", "/api/pii/national-id/"+uuid.New().String(), nil, cookies, nil)
	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"masked":null`) {
		t.Errorf("body = %s", w.Body.String())
	}
}
