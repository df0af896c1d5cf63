package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Errores de verificación. Verify nunca devuelve sujeto junto con un error.
var (
	ErrMalformed    = errors.New("jwt: token mal formado o firma inválida")
	ErrExpired      = errors.New("jwt: token expirado")
	ErrMissingClaim = errors.New("jwt: falta el claim de sujeto")
)

// Políticas de expiración.
const (
	// ExpirySliding exp = instante de emisión + duración.
	ExpirySliding = "sliding"
	// ExpiryDayStart exp = hoy UTC con la hora puesta a 0 (minutos y segundos intactos) + duración.
	ExpiryDayStart = "day_start"
)

// Claims incluye los claims estándar JWT más el nombre de usuario.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// Config parámetros del codec.
type Config struct {
	Secret       string
	Algorithm    string // HS256 | HS384 | HS512
	Lifetime     time.Duration
	Issuer       string
	ExpiryPolicy string
	Now          func() time.Time // opcional, para tests
}

// Codec emite y verifica tokens firmados con HMAC.
type Codec struct {
	secret   []byte
	method   jwt.SigningMethod
	lifetime time.Duration
	issuer   string
	policy   string
	now      func() time.Time
}

// NewCodec valida la configuración y construye el codec.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt: secret vacío")
	}
	if cfg.Lifetime <= 0 {
		return nil, fmt.Errorf("jwt: duración no positiva")
	}
	alg := cfg.Algorithm
	if alg == "" {
		alg = "HS256"
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("jwt: algoritmo no soportado %q", alg)
	}
	policy := cfg.ExpiryPolicy
	if policy == "" {
		policy = ExpirySliding
	}
	if policy != ExpirySliding && policy != ExpiryDayStart {
		return nil, fmt.Errorf("jwt: política de expiración desconocida %q", policy)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Codec{
		secret:   []byte(cfg.Secret),
		method:   method,
		lifetime: cfg.Lifetime,
		issuer:   cfg.Issuer,
		policy:   policy,
		now:      now,
	}, nil
}

// ExpiryFor calcula el vencimiento para un token emitido en issuedAt.
func (c *Codec) ExpiryFor(issuedAt time.Time) time.Time {
	if c.policy == ExpiryDayStart {
		t := issuedAt.UTC()
		start := time.Date(t.Year(), t.Month(), t.Day(), 0, t.Minute(), t.Second(), 0, time.UTC)
		return start.Add(c.lifetime)
	}
	return issuedAt.Add(c.lifetime)
}

// Issue firma un token para subject según la política configurada.
func (c *Codec) Issue(subject string) (string, time.Time, error) {
	now := c.now()
	exp := c.ExpiryFor(now).Truncate(time.Second)
	if !exp.After(now) {
		// day_start con una duración menor que las horas transcurridas del día
		return "", time.Time{}, fmt.Errorf("jwt: expiración %s no es futura", exp.Format(time.RFC3339))
	}
	tok, err := c.IssueWithExpiry(subject, exp)
	return tok, exp, err
}

// IssueWithExpiry firma un token con un vencimiento explícito.
func (c *Codec) IssueWithExpiry(subject string, exp time.Time) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("jwt: sujeto vacío")
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(c.now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Username: subject,
	}
	return jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
}

// Verify valida firma, estructura y vencimiento y devuelve el sujeto.
// Un token es válido estrictamente antes de su exp.
func (c *Codec) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrExpired
		case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
			return "", ErrMissingClaim
		default:
			return "", fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	if !token.Valid {
		return "", ErrMalformed
	}
	subject := claims.Username
	if subject == "" {
		subject = claims.Subject
	}
	if subject == "" {
		return "", ErrMissingClaim
	}
	return subject, nil
}
