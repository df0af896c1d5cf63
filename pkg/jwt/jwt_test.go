package jwt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/tutorlab-api/pkg/jwt"
)

const testSecret = "test-secret-key-for-unit-tests"

// reloj controlable para los tests de expiración.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newCodec(t *testing.T, clock *fakeClock, policy string) *pkgjwt.Codec {
	t.Helper()
	c, err := pkgjwt.NewCodec(pkgjwt.Config{
		Secret:       testSecret,
		Algorithm:    "HS256",
		Lifetime:     24 * time.Hour,
		Issuer:       "tutorlab-test",
		ExpiryPolicy: policy,
		Now:          clock.Now,
	})
	require.NoError(t, err)
	return c
}

// ──────────────────────────────────────────────────────────────────────────────
// Emisión / verificación
// ──────────────────────────────────────────────────────────────────────────────

func TestCodec_IssueYVerify_DevuelveSujeto(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)}
	c := newCodec(t, clock, pkgjwt.ExpirySliding)

	tok, exp, err := c.Issue("alice")
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(24*time.Hour), exp)

	sub, err := c.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestCodec_SecretIncorrecto_Malformed(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tok, _, err := newCodec(t, clock, "").Issue("alice")
	require.NoError(t, err)

	other, err := pkgjwt.NewCodec(pkgjwt.Config{Secret: "otro-secret", Lifetime: time.Hour, Now: clock.Now})
	require.NoError(t, err)

	sub, err := other.Verify(tok)
	assert.ErrorIs(t, err, pkgjwt.ErrMalformed)
	assert.Empty(t, sub)
}

// Cambiar cualquier byte del token debe fallar con Malformed, nunca devolver otro sujeto.
func TestCodec_CualquierByteAlterado_Malformed(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)}
	c := newCodec(t, clock, pkgjwt.ExpirySliding)
	tok, _, err := c.Issue("alice")
	require.NoError(t, err)

	for i := 0; i < len(tok); i++ {
		b := []byte(tok)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		sub, err := c.Verify(string(b))
		require.ErrorIs(t, err, pkgjwt.ErrMalformed, "byte %d alterado", i)
		require.Empty(t, sub)
	}
}

func TestCodec_Expiracion_ValidoAntesExpiradoEnYDespues(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := newCodec(t, clock, pkgjwt.ExpirySliding)
	exp := clock.t.Add(10 * time.Minute)

	tok, err := c.IssueWithExpiry("alice", exp)
	require.NoError(t, err)

	clock.t = exp.Add(-time.Second)
	sub, err := c.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)

	clock.t = exp
	_, err = c.Verify(tok)
	assert.ErrorIs(t, err, pkgjwt.ErrExpired)

	clock.t = exp.Add(time.Hour)
	_, err = c.Verify(tok)
	assert.ErrorIs(t, err, pkgjwt.ErrExpired)
}

func TestCodec_PoliticaDayStart_AnclaAlInicioDelDia(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 10, 15, 42, 7, 0, time.UTC)}
	c := newCodec(t, clock, pkgjwt.ExpiryDayStart)

	_, exp, err := c.Issue("alice")
	require.NoError(t, err)
	// hora a 0, minutos y segundos conservados
	assert.Equal(t, time.Date(2026, 3, 11, 0, 42, 7, 0, time.UTC), exp)
}

func TestCodec_PoliticaDayStart_DuracionCortaNoEmite(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)}
	c, err := pkgjwt.NewCodec(pkgjwt.Config{
		Secret: testSecret, Lifetime: time.Hour, ExpiryPolicy: pkgjwt.ExpiryDayStart, Now: clock.Now,
	})
	require.NoError(t, err)

	_, _, err = c.Issue("alice")
	assert.Error(t, err, "un token nacido vencido no debe emitirse")
}

func TestCodec_TokenBasura_Malformed(t *testing.T) {
	c := newCodec(t, &fakeClock{t: time.Now()}, "")
	_, err := c.Verify("token.invalido.aqui")
	assert.ErrorIs(t, err, pkgjwt.ErrMalformed)
}

func TestNewCodec_ConfiguracionInvalida(t *testing.T) {
	_, err := pkgjwt.NewCodec(pkgjwt.Config{Lifetime: time.Hour})
	assert.Error(t, err)

	_, err = pkgjwt.NewCodec(pkgjwt.Config{Secret: "x", Lifetime: time.Hour, Algorithm: "RS256"})
	assert.Error(t, err)

	_, err = pkgjwt.NewCodec(pkgjwt.Config{Secret: "x", Lifetime: time.Hour, ExpiryPolicy: "weekly"})
	assert.Error(t, err)
}
