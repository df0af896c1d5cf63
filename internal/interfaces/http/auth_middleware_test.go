package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/tutorlab-api/internal/application/auth"
	"github.com/jhoicas/tutorlab-api/internal/application/dto"
	"github.com/jhoicas/tutorlab-api/internal/application/uow"
	"github.com/jhoicas/tutorlab-api/internal/application/usecase"
	"github.com/jhoicas/tutorlab-api/internal/domain/entity"
	"github.com/jhoicas/tutorlab-api/internal/infrastructure/memory"
	"github.com/jhoicas/tutorlab-api/internal/infrastructure/ws"
	apphttp "github.com/jhoicas/tutorlab-api/internal/interfaces/http"
	"github.com/jhoicas/tutorlab-api/pkg/hasher"
	pkgjwt "github.com/jhoicas/tutorlab-api/pkg/jwt"
	"github.com/jhoicas/tutorlab-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testPassword  = "password123"
)

type testEnv struct {
	app    *fiber.App
	codec  *pkgjwt.Codec
	userUC *usecase.UserUseCase
	guard  *auth.Guard
}

// newTestEnv construye la aplicación completa sobre el almacén en memoria.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithLocalization(t, t.TempDir())
}

func newTestEnvWithLocalization(t *testing.T, locDir string) *testEnv {
	t.Helper()
	log := logger.Nop()
	codec, err := pkgjwt.NewCodec(pkgjwt.Config{Secret: testJWTSecret, Lifetime: time.Hour, Issuer: "tutorlab-test"})
	require.NoError(t, err)

	newUoW := uow.NewFactory(memory.NewStore())
	guard := auth.NewGuard(codec, newUoW)
	userUC := usecase.NewUserUseCase(newUoW, hasher.SHA256{}, log)

	hub := ws.NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	app := fiber.New(fiber.Config{ErrorHandler: apphttp.ErrorHandler(log)})
	apphttp.Router(app, apphttp.RouterDeps{
		AuthUC:          auth.NewAuthUseCase(newUoW, hasher.SHA256{}, codec, log),
		UserUC:          userUC,
		Guard:           guard,
		Hub:             hub,
		Log:             log,
		LocalizationDir: locDir,
	})
	return &testEnv{app: app, codec: codec, userUC: userUC, guard: guard}
}

// seedUser crea un usuario con los roles indicados y devuelve su id.
func (e *testEnv) seedUser(t *testing.T, username string, roles ...entity.Role) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := e.userUC.Create(ctx, dto.CreateUserRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)
	if len(roles) > 0 {
		_, err = e.userUC.GrantRoles(ctx, id, roles)
		require.NoError(t, err)
	}
	return id
}

// tokenFor emite un token válido para username.
func (e *testEnv) tokenFor(t *testing.T, username string) string {
	t.Helper()
	tok, _, err := e.codec.Issue(username)
	require.NoError(t, err, "debe generarse un token JWT válido")
	return tok
}

// do lanza una petición con la cookie access_token si token no está vacío.
func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: apphttp.CookieAccessToken, Value: token})
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = strings.NewReader(string(raw))
	}
	return e.do(t, method, path, token, body, fiber.MIMEApplicationJSON)
}

func decodeError(t *testing.T, resp *http.Response) dto.ErrorResponse {
	t.Helper()
	var out dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests RequireRoles
// ──────────────────────────────────────────────────────────────────────────────

// Caso 1: el usuario tiene uno de los roles permitidos → HTTP 200.
func TestRequireRoles_StudentAccedeRutaAbiertaATodos(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice", entity.RoleStudent)

	resp := env.do(t, http.MethodGet, "/api/auth/users/me", env.tokenFor(t, "alice"), nil, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var me dto.UserResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, []string{"STUDENT"}, me.Roles)
}

// Caso 2: rol distinto al requerido → HTTP 403 FORBIDDEN.
func TestRequireRoles_StudentBloqueadoEnRutaAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice", entity.RoleStudent)

	resp := env.doJSON(t, http.MethodPost, "/api/users", env.tokenFor(t, "alice"), dto.CreateUserRequest{
		Username: "bob", Email: "bob@example.com", Password: testPassword,
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", decodeError(t, resp).Code)
}

// Caso 3: usuario sin ningún rol → HTTP 403 incluso en rutas abiertas a todos los roles.
func TestRequireRoles_UsuarioSinRoles_Retorna403(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "nobody")

	resp := env.do(t, http.MethodGet, "/api/users", env.tokenFor(t, "nobody"), nil, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// Caso 4: sin cookie o con el marcador "null" → HTTP 401 MISSING_TOKEN.
func TestRequireRoles_SinCookie_Retorna401(t *testing.T) {
	env := newTestEnv(t)

	for _, tok := range []string{"", "null"} {
		resp := env.do(t, http.MethodGet, "/api/users", tok, nil, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "token=%q", tok)
		assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
		assert.Equal(t, "MISSING_TOKEN", decodeError(t, resp).Code)
		resp.Body.Close()
	}
}

// Caso 5: token malformado o expirado → HTTP 401 INVALID_TOKEN.
func TestRequireRoles_TokenInvalido_Retorna401(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice", entity.RoleStudent)

	expired, err := env.codec.IssueWithExpiry("alice", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	for _, tok := range []string{"token.invalido.aqui", expired} {
		resp := env.do(t, http.MethodGet, "/api/users", tok, nil, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "INVALID_TOKEN", decodeError(t, resp).Code)
		resp.Body.Close()
	}
}

// Caso 6: cuenta deshabilitada con token válido → HTTP 403 INACTIVE_USER.
func TestRequireRoles_UsuarioDeshabilitado_Retorna403(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedUser(t, "mallory", entity.RoleUserAdmin)
	_, err := env.userUC.Delete(context.Background(), id)
	require.NoError(t, err)

	resp := env.do(t, http.MethodGet, "/api/users", env.tokenFor(t, "mallory"), nil, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "INACTIVE_USER", decodeError(t, resp).Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests login / logout
// ──────────────────────────────────────────────────────────────────────────────

func TestToken_FormularioFijaCookieHttpOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice", entity.RoleStudent)

	form := url.Values{"username": {"alice"}, "password": {testPassword}}
	resp := env.do(t, http.MethodPost, "/api/auth/token", "", strings.NewReader(form.Encode()), fiber.MIMEApplicationForm)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out dto.TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "bearer", out.TokenType)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == apphttp.CookieAccessToken {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "el login debe fijar la cookie access_token")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, out.AccessToken, cookie.Value)

	// la cookie emitida autentica peticiones posteriores
	me := env.do(t, http.MethodGet, "/api/auth/users/me", cookie.Value, nil, "")
	defer me.Body.Close()
	assert.Equal(t, http.StatusOK, me.StatusCode)
}

func TestToken_JSONCredencialesIncorrectas_Retorna401(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice", entity.RoleStudent)

	resp := env.doJSON(t, http.MethodPost, "/api/auth/token", "", dto.LoginRequest{Username: "alice", Password: "mala"})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, resp).Code)
	assert.Empty(t, resp.Cookies())
}

func TestToken_SinCampos_Retorna422(t *testing.T) {
	env := newTestEnv(t)

	resp := env.doJSON(t, http.MethodPost, "/api/auth/token", "", map[string]string{"username": "alice"})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decodeError(t, resp).Code)
}

func TestLogout_ExpiraLaCookie(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice", entity.RoleTutor)

	resp := env.do(t, http.MethodPost, "/api/auth/logout", env.tokenFor(t, "alice"), nil, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == apphttp.CookieAccessToken {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.Expires.Before(time.Now()), "la cookie debe quedar expirada")
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests rutas públicas
// ──────────────────────────────────────────────────────────────────────────────

func TestPing(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/ping", "", nil, "")
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
}

func TestWS_SinHandshake_Retorna426(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/ws", "", nil, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
