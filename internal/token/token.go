package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultRole подставляется, когда claim role отсутствует или пустой.
// Дефолт должны применять одинаково ВСЕ сервисы-верификаторы.
const DefaultRole = "USER"

// ErrTokenInvalid — единственная ошибка верификации. Плохая подпись, битая
// структура и истёкший срок снаружи неразличимы, детали — только в логах.
var ErrTokenInvalid = errors.New("неверный или просроченный токен")

// Claims — содержимое токена. Никуда не сохраняется, живёт только в самом JWT.
type Claims struct {
	Subject   string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Verifier — проверка токена без обращения к выпустившему его сервису.
// Интерфейс нужен, чтобы общий секрет можно было заменить на асимметричную
// схему, не трогая вызывающий код.
type Verifier interface {
	Verify(tokenString string) (*Claims, error)
}

// Codec выпускает и проверяет токены на общем HS256-секрете.
// Чистые функции от (токен, секрет, часы), никакого I/O и блокировок.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue выпускает токен: sub, role, iat = сейчас, exp = сейчас + TTL.
// Пустая роль нормализуется в USER один раз здесь, а не при каждой проверке.
func (c *Codec) Issue(subject, role string) (string, error) {
	if strings.TrimSpace(role) == "" {
		role = DefaultRole
	}

	now := c.now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(c.ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// Verify проверяет подпись и срок действия. Срок оценивается по текущему
// времени на момент проверки, не на момент выпуска.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrTokenInvalid
	}

	out := &Claims{
		Subject: sub,
		Role:    extractRole(claims),
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// extractRole возвращает роль из claims или USER, никогда не пустую строку.
// Старые токены выпускались без role — дефолт здесь обязателен.
func extractRole(claims jwt.MapClaims) string {
	role, _ := claims["role"].(string)
	if strings.TrimSpace(role) == "" {
		return DefaultRole
	}
	return role
}
